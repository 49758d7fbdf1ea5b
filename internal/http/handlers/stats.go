package handlers

import (
	"net/http"

	"samserver/internal/sqlinline"
)

type usageStat struct {
	EventType    string `json:"event_type"`
	Total        int64  `json:"total"`
	Succeeded    int64  `json:"succeeded"`
	AvgLatencyMS int64  `json:"avg_latency_ms"`
}

type usageResponse struct {
	OK     bool        `json:"ok"`
	Window string      `json:"window"`
	Events []usageStat `json:"events"`
}

// Usage24h handles GET /api/metrics/usage-24h: per-event-type counters for
// the trailing day.
func (a *App) Usage24h(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.session(w, r); !ok {
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectUsage24h)
	if err != nil {
		a.Logger.Error().Err(err).Msg("usage stats query failed")
		a.fail(w, r, http.StatusInternalServerError, "SERVER_ERROR", "could not load usage stats")
		return
	}
	defer rows.Close()

	events := make([]usageStat, 0)
	for rows.Next() {
		var s usageStat
		if err := rows.Scan(&s.EventType, &s.Total, &s.Succeeded, &s.AvgLatencyMS); err != nil {
			a.fail(w, r, http.StatusInternalServerError, "SERVER_ERROR", "could not load usage stats")
			return
		}
		events = append(events, s)
	}
	if err := rows.Err(); err != nil {
		a.fail(w, r, http.StatusInternalServerError, "SERVER_ERROR", "could not load usage stats")
		return
	}

	a.json(w, http.StatusOK, usageResponse{OK: true, Window: "24h", Events: events})
}
