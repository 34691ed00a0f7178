package httpapi

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/domain/repository"
	"crewsync-service/pkg/logger"
)

// snapshotStaleness is how old a cached snapshot may be before the reserves
// endpoint refuses to serve it.
const snapshotStaleness = 2 * time.Hour

// reserveLabelPattern splits a reserve pairing label into the reserve code
// and the priority tail, e.g. "RES1A" into "RES" and "1A".
var reserveLabelPattern = regexp.MustCompile(`^(\d?[A-Z]+)(\d+(.+)?)`)

// Handler serves the read API. It answers from the snapshot cache and the
// persisted store only; it never triggers upstream fetches.
type Handler struct {
	snapshots repository.ScheduleSnapshotRepository
	dutyRepo  repository.DutyRecordRepository
	logger    logger.Logger
}

// NewHandler creates a new read API handler
func NewHandler(snapshots repository.ScheduleSnapshotRepository, dutyRepo repository.DutyRecordRepository, logger logger.Logger) *Handler {
	return &Handler{snapshots: snapshots, dutyRepo: dutyRepo, logger: logger}
}

// Register attaches the read API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/reserves", h.GetReserves)
	mux.HandleFunc("/api/duties", h.GetDuties)
	mux.HandleFunc("/health", h.Health)
}

// Reserve is one reserve assignment in the reserves response.
type Reserve struct {
	PairingID int       `json:"pairingId"`
	Label     string    `json:"label"`
	Reserve   string    `json:"reserve"`
	Priority  string    `json:"priority"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Name      string    `json:"name"`
	EmpCode   string    `json:"empCode"`
	Rank      string    `json:"rank"`
}

// GetReserves lists reserve assignments from the latest pairing snapshot,
// optionally filtered by label query and rank list.
func (h *Handler) GetReserves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := h.snapshots.Get(r.Context(), entity.SnapshotPairings)
	if err != nil {
		h.logger.Error("Failed to read pairing snapshot", "error", err)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}
	if snapshot.Stale(snapshotStaleness) {
		http.Error(w, "snapshot stale, retry after next sync", http.StatusServiceUnavailable)
		return
	}

	query := strings.ToUpper(r.URL.Query().Get("q"))
	ranks := splitParam(r.URL.Query().Get("ranks"))

	reserves := make([]Reserve, 0)
	for i := range snapshot.Pairings {
		pairing := snapshot.Pairings[i]
		if pairing.WorkTypeID != entity.WorkTypeReserve {
			continue
		}

		parts := reserveLabelPattern.FindStringSubmatch(pairing.Label)
		if parts == nil {
			continue
		}
		if query != "" && !strings.Contains(strings.ToUpper(pairing.Label), query) {
			continue
		}

		for _, employee := range pairing.PairingEmployees {
			if len(ranks) > 0 && !containsFold(ranks, employee.Rank) {
				continue
			}
			reserves = append(reserves, Reserve{
				PairingID: pairing.ID,
				Label:     pairing.Label,
				Reserve:   parts[1],
				Priority:  parts[2],
				Start:     pairing.StartDate,
				End:       pairing.EndDate,
				Name:      employee.Name,
				EmpCode:   employee.EmpCode,
				Rank:      employee.Rank,
			})
		}
	}

	writeJSON(w, h.logger, map[string]interface{}{
		"fetchedAt": snapshot.FetchedAt,
		"reserves":  reserves,
	})
}

// GetDuties lists persisted duty rows for one crew member.
func (h *Handler) GetDuties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	empCode := r.URL.Query().Get("crew")
	if empCode == "" {
		http.Error(w, "crew query parameter is required", http.StatusBadRequest)
		return
	}

	duties, err := h.dutyRepo.GetByCrew(r.Context(), empCode, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("Failed to read duties", "empCode", empCode, "error", err)
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, map[string]interface{}{"duties": duties})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, log logger.Logger, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
