package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/GoCodeAlone/modular"
)

// DefaultKeyPrefix namespaces progress records in the backend key space.
const DefaultKeyPrefix = "flow-progress:"

// Progress records which steps and tasks of one flow are complete. Step
// and task indices are positional and are not validated against the live
// flow definition; indices left behind by a shrunk flow stay stored and
// are ignored by CompletionPercent.
type Progress struct {
	CompletedSteps map[int]bool
	CompletedTasks map[int]map[int]bool
}

// NewProgress returns an empty progress value.
func NewProgress() Progress {
	return Progress{
		CompletedSteps: make(map[int]bool),
		CompletedTasks: make(map[int]map[int]bool),
	}
}

// Clone returns an independent deep copy.
func (p Progress) Clone() Progress {
	out := NewProgress()
	for step := range p.CompletedSteps {
		out.CompletedSteps[step] = true
	}
	for step, tasks := range p.CompletedTasks {
		set := make(map[int]bool, len(tasks))
		for task := range tasks {
			set[task] = true
		}
		out.CompletedTasks[step] = set
	}
	return out
}

// IsStepComplete reports whether the indexed step is complete.
func (p Progress) IsStepComplete(stepIndex int) bool {
	return p.CompletedSteps[stepIndex]
}

// IsTaskComplete reports whether the indexed task within the indexed step
// is complete.
func (p Progress) IsTaskComplete(stepIndex, taskIndex int) bool {
	return p.CompletedTasks[stepIndex][taskIndex]
}

// IsEmpty reports whether no steps and no tasks are complete.
func (p Progress) IsEmpty() bool {
	return len(p.CompletedSteps) == 0 && len(p.CompletedTasks) == 0
}

// CompletionPercent derives the whole-percent completion of a flow with
// totalSteps steps, rounding half up. Steps outside [0, totalSteps) are
// ignored; a flow with no steps is 0% complete.
func (p Progress) CompletionPercent(totalSteps int) int {
	if totalSteps <= 0 {
		return 0
	}
	completed := 0
	for step := range p.CompletedSteps {
		if step >= 0 && step < totalSteps {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(totalSteps) * 100))
}

// progressRecord is the serialized form of a Progress: sorted step indices
// plus a map of decimal step index to sorted task indices.
type progressRecord struct {
	CompletedSteps []int            `json:"completedSteps"`
	CompletedTasks map[string][]int `json:"completedTasks"`
}

func marshalProgress(p Progress) (string, error) {
	record := progressRecord{
		CompletedSteps: sortedIndices(p.CompletedSteps),
		CompletedTasks: make(map[string][]int, len(p.CompletedTasks)),
	}
	for step, tasks := range p.CompletedTasks {
		if len(tasks) == 0 {
			continue
		}
		record.CompletedTasks[strconv.Itoa(step)] = sortedIndices(tasks)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to serialize progress record: %w", err)
	}
	return string(data), nil
}

// unmarshalProgress parses a serialized record. Any defect (malformed
// JSON, wrong field types, a non-integer step key) makes the whole record
// corrupt.
func unmarshalProgress(raw string) (Progress, error) {
	var record progressRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Progress{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	progress := NewProgress()
	for _, step := range record.CompletedSteps {
		progress.CompletedSteps[step] = true
	}
	for key, tasks := range record.CompletedTasks {
		step, err := strconv.Atoi(key)
		if err != nil {
			return Progress{}, fmt.Errorf("%w: step key %q is not an integer", ErrCorruptRecord, key)
		}
		if len(tasks) == 0 {
			continue
		}
		set := make(map[int]bool, len(tasks))
		for _, task := range tasks {
			set[task] = true
		}
		progress.CompletedTasks[step] = set
	}
	return progress, nil
}

func sortedIndices(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for index := range set {
		out = append(out, index)
	}
	sort.Ints(out)
	return out
}

// ProgressStore tracks flow progress in memory and mirrors every mutation
// to its backend synchronously. The in-memory state is authoritative for
// the life of the store: backend reads happen once per flow, backend write
// failures are logged and discarded, and callers never see a persistence
// error.
type ProgressStore struct {
	backend   ProgressBackend
	keyPrefix string
	logger    modular.Logger

	mu    sync.Mutex
	cache map[string]Progress

	module *FlowsModule
}

// NewProgressStore creates a store over backend. An empty keyPrefix falls
// back to DefaultKeyPrefix; a nil logger falls back to slog.Default().
func NewProgressStore(backend ProgressBackend, keyPrefix string, logger modular.Logger) *ProgressStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressStore{
		backend:   backend,
		keyPrefix: keyPrefix,
		logger:    logger,
		cache:     make(map[string]Progress),
	}
}

// SetModule attaches the owning module so store operations can emit
// observer events.
func (s *ProgressStore) SetModule(module *FlowsModule) {
	s.module = module
}

// SetBackend swaps the storage backend. Cached records are kept; they
// remain authoritative over whatever the new backend holds.
func (s *ProgressStore) SetBackend(backend ProgressBackend) {
	s.mu.Lock()
	s.backend = backend
	s.mu.Unlock()
}

// GetFlowProgress returns a copy of the flow's progress. A record that is
// absent, unreadable, or unparseable yields the empty value; this method
// never fails.
func (s *ProgressStore) GetFlowProgress(ctx context.Context, flowID string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx, flowID).Clone()
}

// ToggleStepComplete flips the completion of the indexed step and persists
// the whole record. Applying it twice with the same arguments restores the
// prior state. The updated progress is returned as a copy.
func (s *ProgressStore) ToggleStepComplete(ctx context.Context, flowID string, stepIndex int) Progress {
	s.mu.Lock()
	progress := s.loadLocked(ctx, flowID)
	nowComplete := !progress.CompletedSteps[stepIndex]
	if nowComplete {
		progress.CompletedSteps[stepIndex] = true
	} else {
		delete(progress.CompletedSteps, stepIndex)
	}
	out := progress.Clone()
	persistErr := s.persistLocked(ctx, flowID, progress)
	s.mu.Unlock()

	s.emitEvent(ctx, EventTypeStepToggled, map[string]interface{}{
		"flowId":    flowID,
		"stepIndex": stepIndex,
		"complete":  nowComplete,
	})
	s.emitPersistFailure(ctx, flowID, persistErr)
	return out
}

// ToggleTaskComplete flips the completion of the indexed task within the
// indexed step and persists the whole record. The per-step task set is
// created lazily and removed again when it empties, so toggling twice
// restores the exact prior state. The updated progress is returned as a
// copy.
func (s *ProgressStore) ToggleTaskComplete(ctx context.Context, flowID string, stepIndex, taskIndex int) Progress {
	s.mu.Lock()
	progress := s.loadLocked(ctx, flowID)
	tasks := progress.CompletedTasks[stepIndex]
	nowComplete := !tasks[taskIndex]
	if nowComplete {
		if tasks == nil {
			tasks = make(map[int]bool)
			progress.CompletedTasks[stepIndex] = tasks
		}
		tasks[taskIndex] = true
	} else {
		delete(tasks, taskIndex)
		if len(tasks) == 0 {
			delete(progress.CompletedTasks, stepIndex)
		}
	}
	out := progress.Clone()
	persistErr := s.persistLocked(ctx, flowID, progress)
	s.mu.Unlock()

	s.emitEvent(ctx, EventTypeTaskToggled, map[string]interface{}{
		"flowId":    flowID,
		"stepIndex": stepIndex,
		"taskIndex": taskIndex,
		"complete":  nowComplete,
	})
	s.emitPersistFailure(ctx, flowID, persistErr)
	return out
}

// ResetFlowProgress clears the flow's progress and persists an explicit
// empty record. The backend contract has no delete, so the key stays
// present holding the empty value.
func (s *ProgressStore) ResetFlowProgress(ctx context.Context, flowID string) {
	s.mu.Lock()
	progress := NewProgress()
	s.cache[flowID] = progress
	persistErr := s.persistLocked(ctx, flowID, progress)
	s.mu.Unlock()

	s.emitEvent(ctx, EventTypeProgressReset, map[string]interface{}{
		"flowId": flowID,
	})
	s.emitPersistFailure(ctx, flowID, persistErr)
}

// loadLocked returns the cached live record for flowID, reading it from
// the backend on first touch. Callers must hold s.mu.
func (s *ProgressStore) loadLocked(ctx context.Context, flowID string) Progress {
	if progress, ok := s.cache[flowID]; ok {
		return progress
	}
	progress := s.readBackend(ctx, flowID)
	s.cache[flowID] = progress
	return progress
}

func (s *ProgressStore) readBackend(ctx context.Context, flowID string) Progress {
	raw, err := s.backend.Get(ctx, s.key(flowID))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("Failed to read flow progress, starting empty", "flowId", flowID, "error", err)
		}
		return NewProgress()
	}

	progress, err := unmarshalProgress(raw)
	if err != nil {
		s.logger.Warn("Discarding corrupt flow progress record", "flowId", flowID, "error", err)
		return NewProgress()
	}
	return progress
}

// persistLocked writes the whole record through to the backend. Failures
// are logged and reported to the caller for event emission only; they
// never propagate further.
func (s *ProgressStore) persistLocked(ctx context.Context, flowID string, progress Progress) error {
	raw, err := marshalProgress(progress)
	if err != nil {
		s.logger.Warn("Failed to serialize flow progress", "flowId", flowID, "error", err)
		return err
	}
	if err := s.backend.Set(ctx, s.key(flowID), raw); err != nil {
		s.logger.Warn("Failed to persist flow progress, keeping in-memory state", "flowId", flowID, "error", err)
		return err
	}
	return nil
}

func (s *ProgressStore) key(flowID string) string {
	return s.keyPrefix + flowID
}

func (s *ProgressStore) emitPersistFailure(ctx context.Context, flowID string, persistErr error) {
	if persistErr == nil {
		return
	}
	s.emitEvent(ctx, EventTypePersistFailed, map[string]interface{}{
		"flowId": flowID,
		"error":  persistErr.Error(),
	})
}

// emitEvent forwards an operational event to the owning module, when the
// store is running under one.
func (s *ProgressStore) emitEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.module != nil {
		s.module.emitOperationalEvent(ctx, eventType, data)
	}
}
