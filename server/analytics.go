package main

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

// Analytics persists engine events with batched background writes so the
// tick never waits on the database. It implements EventSink and can be
// registered directly on an engine.
type Analytics struct {
	db     *DB
	events chan trackedEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	// Live metrics and shutdown flag
	mu         sync.RWMutex
	stopped    bool
	spectators int
	battleID   string
}

type trackedEvent struct {
	BattleID  string
	Type      string
	Species   string
	Data      string
	SimTimeMs float64
	Result    *battleResult // battle end archives a result row too
}

// battleResult is the battles-table row carried through the writer so the
// archive insert happens off the tick path with the rest of the batch.
type battleResult struct {
	WinnerTeam  int
	DurationMs  float64
	Conversions int
	FinalCount  int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan trackedEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// SetBattle points subsequent tracked events at a battle run
func (a *Analytics) SetBattle(id string) {
	a.mu.Lock()
	a.battleID = id
	a.mu.Unlock()
}

// SetSpectators updates the live spectator count metric
func (a *Analytics) SetSpectators(n int) {
	a.mu.Lock()
	a.spectators = n
	a.mu.Unlock()
}

// Spectators returns the live spectator count
func (a *Analytics) Spectators() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.spectators
}

// HandleEvent enqueues an engine event for persistence. It never blocks
// and never touches the database: battle end rides through the batched
// writer as a result row like every other event. After Stop, events are
// dropped.
func (a *Analytics) HandleEvent(ev Event) {
	a.mu.RLock()
	bid := a.battleID
	stopped := a.stopped
	a.mu.RUnlock()
	if stopped {
		return
	}

	te := trackedEvent{BattleID: bid, Type: string(ev.Type), SimTimeMs: ev.TimeMs}
	switch ev.Type {
	case EventConverted:
		te.Species = ev.Species.String()
		te.Data = fmt.Sprintf(`{"winner":%d,"loser":%d}`, ev.WinnerID, ev.LoserID)
	case EventDied:
		te.Data = fmt.Sprintf(`{"entity":%d}`, ev.EntityID)
	case EventSpawned:
		te.Species = ev.Species.String()
		te.Data = fmt.Sprintf(`{"entity":%d}`, ev.EntityID)
	case EventBattleEnd:
		te.Data = fmt.Sprintf(`{"winner_team":%d}`, ev.WinnerTeam)
		te.Result = &battleResult{
			WinnerTeam:  ev.WinnerTeam,
			DurationMs:  ev.Stats.BattleTimeMs,
			Conversions: ev.Stats.TotalConversions,
			FinalCount:  ev.Stats.ActivePlayers,
		}
	}

	select {
	case a.events <- te:
	default:
		// Channel full, drop rather than stalling the tick
	}
}

// Stop flushes pending events and shuts the writer down. Safe to call
// more than once; events arriving afterwards are dropped.
func (a *Analytics) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()

	close(a.stop)
	a.wg.Wait()
}

// writer batches events and flushes on size, interval or shutdown
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]trackedEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain what's buffered without closing the channel: the
			// battle loop may race one last send during shutdown.
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					if len(batch) > 0 {
						a.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(events []trackedEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Printf("analytics: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO battle_events (battle_id, event_type, species, data, sim_time_ms) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("analytics: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		sp := sql.NullString{String: evt.Species, Valid: evt.Species != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.BattleID, evt.Type, sp, data, evt.SimTimeMs); err != nil {
			log.Printf("analytics: insert error: %v", err)
		}
		if evt.Result != nil {
			_, err := tx.Exec(
				"INSERT INTO battles (id, winner_team, duration_ms, conversions, final_count) VALUES (?, ?, ?, ?, ?)",
				evt.BattleID, evt.Result.WinnerTeam, evt.Result.DurationMs,
				evt.Result.Conversions, evt.Result.FinalCount,
			)
			if err != nil {
				log.Printf("analytics: archive battle: %v", err)
			}
		}
	}
	tx.Commit()
}

// --- Query methods for the summary API ---

// Summary aggregates the archive for the stats endpoint
type Summary struct {
	TotalBattles      int            `json:"total_battles"`
	AvgDurationMs     float64        `json:"avg_duration_ms"`
	TotalConversions  int            `json:"total_conversions"`
	WinsByTeam        map[int]int    `json:"wins_by_team"`
	ConversionsBySpec map[string]int `json:"conversions_by_species"`
	Spectators        int            `json:"spectators"`
}

// BuildSummary runs the aggregate queries over the archive
func (a *Analytics) BuildSummary() (*Summary, error) {
	s := &Summary{
		WinsByTeam:        make(map[int]int),
		ConversionsBySpec: make(map[string]int),
		Spectators:        a.Spectators(),
	}
	if a.db == nil {
		return s, nil
	}

	var avgDur sql.NullFloat64
	err := a.db.conn.QueryRow(
		"SELECT COUNT(*), AVG(duration_ms), COALESCE(SUM(conversions), 0) FROM battles",
	).Scan(&s.TotalBattles, &avgDur, &s.TotalConversions)
	if err != nil {
		return nil, err
	}
	s.AvgDurationMs = avgDur.Float64

	rows, err := a.db.conn.Query(
		"SELECT winner_team, COUNT(*) FROM battles GROUP BY winner_team",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var team, count int
		if err := rows.Scan(&team, &count); err != nil {
			continue
		}
		s.WinsByTeam[team] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	convRows, err := a.db.conn.Query(
		"SELECT species, COUNT(*) FROM battle_events WHERE event_type = ? AND species IS NOT NULL GROUP BY species",
		string(EventConverted),
	)
	if err != nil {
		return nil, err
	}
	defer convRows.Close()
	for convRows.Next() {
		var sp string
		var count int
		if err := convRows.Scan(&sp, &count); err != nil {
			continue
		}
		s.ConversionsBySpec[sp] = count
	}
	return s, convRows.Err()
}

// BattlesPerDay returns battle counts for the last N days
func (a *Analytics) BattlesPerDay(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT date(created_at) as day, COUNT(*)
		FROM battles
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY day ORDER BY day
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			continue
		}
		result[day] = count
	}
	return result, rows.Err()
}
