package schedule

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/timetable"
)

var (
	// errors
	ErrNotFound      = errors.New("schedule entry not found")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrNoBackup      = errors.New("no backup found")

	NowFunc = time.Now // mockable

	orderingFields = map[string]func(a, b Entry) int{
		"class_name":  func(a, b Entry) int { return strings.Compare(a.ClassName, b.ClassName) },
		"course_name": func(a, b Entry) int { return strings.Compare(a.CourseName, b.CourseName) },
		"teacher":     func(a, b Entry) int { return strings.Compare(a.Teacher, b.Teacher) },
		"kind":        func(a, b Entry) int { return strings.Compare(a.Kind, b.Kind) },
		"room":        func(a, b Entry) int { return strings.Compare(a.Room, b.Room) },
		"weeks":       func(a, b Entry) int { return strings.Compare(a.Weeks, b.Weeks) },
		"weekday":     func(a, b Entry) int { return a.Weekday - b.Weekday },
		"start":       func(a, b Entry) int { return a.start() - b.start() },
	}
)

type Service interface {
	Query(ctx context.Context, filter *QueryFilter, orderings []core.Ordering) ([]Entry, error)
	Classes(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (Entry, error)
	Create(ctx context.Context, ne NewEntry) (Entry, error)
	// Update is meant to receive ue once validated against the entry (see UpdateEntry.Validate);
	// any field left blank keeps its current value.
	Update(ctx context.Context, id string, ue UpdateEntry) (Entry, error)
	Delete(ctx context.Context, ids ...string) error
	// Replace swaps the whole roster with the given entries (eg. after an Excel upload).
	Replace(ctx context.Context, nes []NewEntry) ([]Entry, error)
	Append(ctx context.Context, nes []NewEntry) ([]Entry, error)

	Undo(ctx context.Context) ([]Entry, error)
	Redo(ctx context.Context) ([]Entry, error)
	History(ctx context.Context) (HistoryInfo, error)

	Backup(ctx context.Context) (BackupInfo, error)
	BackupInfo(ctx context.Context) (BackupInfo, error)
	BackupDiff(ctx context.Context) (string, error)
	Restore(ctx context.Context) ([]Entry, error)

	FreeTime(ctx context.Context, className string, weekday, week int) ([]timetable.Interval, error)
}

type service struct {
	store        store
	historyDepth int
	logger       core.Logger

	// the roster is a single blob: every mutation is a read-modify-write of the whole of it
	mu sync.Mutex
}

var _ Service = (*service)(nil)

func NewService(kv core.KVStore, logger core.Logger, conf *core.Config) Service {
	depth := conf.Schedule.HistoryDepth
	if depth < 0 {
		depth = 0
	}
	return &service{
		store:        store{kv: kv, prefix: conf.KV.Prefix},
		historyDepth: depth,
		logger:       logger,
	}
}

func (e Entry) start() int {
	busy, err := e.Busy()
	if err != nil || len(busy) == 0 {
		return 0
	}
	first := busy[0].Start
	for _, b := range busy[1:] {
		if b.Start < first {
			first = b.Start
		}
	}
	return first
}

func (ne NewEntry) toEntry() Entry {
	e := Entry{
		ID:         uuid.New().String(),
		ClassName:  ne.ClassName,
		CourseName: ne.CourseName,
		Teacher:    ne.Teacher,
		Kind:       ne.Kind,
		Weekday:    ne.Weekday,
		Weeks:      ne.Weeks,
		Room:       ne.Room,
		Note:       ne.Note,
	}
	if e.Kind == KindTraining {
		e.Blocks = ne.Blocks
	} else {
		e.Periods = ne.Periods
	}
	return e
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.Ordering) ([]Entry, error) {
	for _, ord := range orderings {
		if _, ok := orderingFields[ord.Field]; !ok {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "unknown field: " + ord.Field})
		}
	}

	entries, err := svc.store.entries(ctx)
	if err != nil {
		return nil, err
	}

	result := entries
	if filter != nil && !filter.IsEmpty() {
		result = make([]Entry, 0, len(entries))
		for _, e := range entries {
			if filter.match(e) {
				result = append(result, e)
			}
		}
	}

	if len(orderings) > 0 {
		sort.SliceStable(result, func(i, j int) bool {
			for _, ord := range orderings {
				c := orderingFields[ord.Field](result[i], result[j])
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	return result, nil
}

func (svc *service) Classes(ctx context.Context) ([]string, error) {
	entries, err := svc.store.entries(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	classes := make([]string, 0)
	for _, e := range entries {
		if !seen[e.ClassName] {
			seen[e.ClassName] = true
			classes = append(classes, e.ClassName)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Entry, error) {
	entries, err := svc.store.entries(ctx)
	if err != nil {
		return Entry{}, err
	}
	if i := indexOf(entries, id); i >= 0 {
		return entries[i], nil
	}
	return Entry{}, ErrNotFound
}

func (svc *service) Create(ctx context.Context, ne NewEntry) (Entry, error) {
	entry := ne.toEntry()
	_, err := svc.mutate(ctx, func(entries []Entry) ([]Entry, error) {
		return append(entries, entry), nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEntry) (Entry, error) {
	var updated Entry
	_, err := svc.mutate(ctx, func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		updated = ue.apply(entries[i])
		entries[i] = updated
		return entries, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return updated, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}
	_, err := svc.mutate(ctx, func(entries []Entry) ([]Entry, error) {
		kept := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if !toDelete[e.ID] {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
	return err
}

func (svc *service) Replace(ctx context.Context, nes []NewEntry) ([]Entry, error) {
	return svc.mutate(ctx, func([]Entry) ([]Entry, error) {
		entries := make([]Entry, 0, len(nes))
		for _, ne := range nes {
			entries = append(entries, ne.toEntry())
		}
		return entries, nil
	})
}

func (svc *service) Append(ctx context.Context, nes []NewEntry) ([]Entry, error) {
	return svc.mutate(ctx, func(entries []Entry) ([]Entry, error) {
		for _, ne := range nes {
			entries = append(entries, ne.toEntry())
		}
		return entries, nil
	})
}

// mutate applies fn to a copy of the current roster, saves the result and records the previous roster for undo.
// The roster is saved first; when the history cannot be updated afterwards, both are put back as they were.
func (svc *service) mutate(ctx context.Context, fn func([]Entry) ([]Entry, error)) ([]Entry, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	current, err := svc.store.entries(ctx)
	if err != nil {
		return nil, err
	}
	undo, err := svc.store.snapshots(ctx, undoKey)
	if err != nil {
		return nil, err
	}
	working := make([]Entry, len(current))
	copy(working, current)

	next, err := fn(working)
	if err != nil {
		return nil, err
	}
	if err = svc.store.setEntries(ctx, next); err != nil {
		return nil, err
	}
	if svc.historyDepth > 0 {
		if err = svc.store.setSnapshots(ctx, undoKey, svc.push(undo, current)); err != nil {
			return nil, svc.rollback(ctx, current, undoKey, undo, errors.Wrap(err, "saving undo history"))
		}
	}
	if err = svc.store.setSnapshots(ctx, redoKey, nil); err != nil {
		return nil, svc.rollback(ctx, current, undoKey, undo, errors.Wrap(err, "clearing redo history"))
	}
	return next, nil
}

// push appends a snapshot to a history stack, dropping the oldest ones past historyDepth.
func (svc *service) push(stack [][]Entry, snapshot []Entry) [][]Entry {
	pushed := make([][]Entry, 0, len(stack)+1)
	pushed = append(append(pushed, stack...), snapshot)
	if over := len(pushed) - svc.historyDepth; over > 0 {
		pushed = pushed[over:]
	}
	return pushed
}

// rollback puts back the roster & one history stack after a failed write, and returns cause.
func (svc *service) rollback(ctx context.Context, entries []Entry, k string, stack [][]Entry, cause error) error {
	if err := svc.store.setEntries(ctx, entries); err != nil {
		svc.logger.Error("rolling back roster", err)
	}
	if err := svc.store.setSnapshots(ctx, k, stack); err != nil {
		svc.logger.Error("rolling back "+k, err)
	}
	return cause
}

// travel pops the latest snapshot from one history stack, makes it current and pushes the current roster onto the other.
func (svc *service) travel(ctx context.Context, from, to string, errEmpty error) ([]Entry, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	stack, err := svc.store.snapshots(ctx, from)
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 {
		return nil, errEmpty
	}
	snapshot := stack[len(stack)-1]

	current, err := svc.store.entries(ctx)
	if err != nil {
		return nil, err
	}
	other, err := svc.store.snapshots(ctx, to)
	if err != nil {
		return nil, err
	}

	if err = svc.store.setEntries(ctx, snapshot); err != nil {
		return nil, err
	}
	if err = svc.store.setSnapshots(ctx, from, stack[:len(stack)-1]); err != nil {
		return nil, svc.rollback(ctx, current, from, stack, err)
	}
	if err = svc.store.setSnapshots(ctx, to, svc.push(other, current)); err != nil {
		return nil, svc.rollback(ctx, current, from, stack, err)
	}
	if snapshot == nil {
		snapshot = make([]Entry, 0)
	}
	return snapshot, nil
}

func (svc *service) Undo(ctx context.Context) ([]Entry, error) {
	return svc.travel(ctx, undoKey, redoKey, ErrNothingToUndo)
}

func (svc *service) Redo(ctx context.Context) ([]Entry, error) {
	return svc.travel(ctx, redoKey, undoKey, ErrNothingToRedo)
}

func (svc *service) History(ctx context.Context) (HistoryInfo, error) {
	undo, err := svc.store.snapshots(ctx, undoKey)
	if err != nil {
		return HistoryInfo{}, err
	}
	redo, err := svc.store.snapshots(ctx, redoKey)
	if err != nil {
		return HistoryInfo{}, err
	}
	return HistoryInfo{Undo: len(undo), Redo: len(redo)}, nil
}

// Backup copies the roster key to the backup key as is.
func (svc *service) Backup(ctx context.Context) (BackupInfo, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	data, err := svc.store.getRaw(ctx, entriesKey)
	if err != nil {
		if errors.Cause(err) != core.ErrKeyNotFound {
			return BackupInfo{}, errors.Wrap(err, "reading roster")
		}
		data = []byte("[]")
	}
	var entries []Entry
	if err = json.Unmarshal(data, &entries); err != nil {
		return BackupInfo{}, errors.Wrap(err, "decoding roster")
	}

	if err = svc.store.kv.Set(ctx, svc.store.key(backupKey), data); err != nil {
		return BackupInfo{}, errors.Wrap(err, "writing backup")
	}
	info := BackupInfo{SavedAt: NowFunc().UTC(), Count: len(entries)}
	if err = svc.store.setJSON(ctx, backupMetaKey, info); err != nil {
		return BackupInfo{}, err
	}
	svc.logger.Info("roster backed up", map[string]interface{}{"count": info.Count})
	return info, nil
}

func (svc *service) BackupInfo(ctx context.Context) (BackupInfo, error) {
	var info BackupInfo
	found, err := svc.store.getJSON(ctx, backupMetaKey, &info)
	if err != nil {
		return BackupInfo{}, err
	}
	if !found {
		return BackupInfo{}, ErrNoBackup
	}
	return info, nil
}

func (svc *service) backupEntries(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0)
	found, err := svc.store.getJSON(ctx, backupKey, &entries)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoBackup
	}
	if entries == nil {
		entries = make([]Entry, 0)
	}
	return entries, nil
}

// BackupDiff previews a restore: a unified diff going from the current roster to the backup, one entry per line.
func (svc *service) BackupDiff(ctx context.Context) (string, error) {
	backup, err := svc.backupEntries(ctx)
	if err != nil {
		return "", err
	}
	current, err := svc.store.entries(ctx)
	if err != nil {
		return "", err
	}
	from, err := entryLines(current)
	if err != nil {
		return "", err
	}
	to, err := entryLines(backup)
	if err != nil {
		return "", err
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        from,
		B:        to,
		FromFile: "current",
		ToFile:   "backup",
		Context:  1,
	})
	return diff, errors.Wrap(err, "diffing backup")
}

// Restore makes the backup the current roster. It can be undone.
func (svc *service) Restore(ctx context.Context) ([]Entry, error) {
	entries, err := svc.mutate(ctx, func([]Entry) ([]Entry, error) { return svc.backupEntries(ctx) })
	if err != nil {
		return nil, err
	}
	svc.logger.Info("roster restored from backup", map[string]interface{}{"count": len(entries)})
	return entries, nil
}

// FreeTime computes when a class is free on a weekday, given everything it has scheduled that week.
func (svc *service) FreeTime(ctx context.Context, className string, weekday, week int) ([]timetable.Interval, error) {
	className = core.CleanString(className)
	if className == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "class", Error: "this field is required"})
	}
	if weekday < 1 || weekday > 7 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "weekday", Error: "weekday must be between 1 and 7"})
	}
	entries, err := svc.Query(ctx, &QueryFilter{ClassName: className, Weekday: weekday, Week: week}, nil)
	if err != nil {
		return nil, err
	}
	busy := make([][]timetable.Interval, 0, len(entries))
	for _, e := range entries {
		b, err := e.Busy()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %s", e.ID)
		}
		busy = append(busy, b)
	}
	return timetable.FreeTime(busy...), nil
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func entryLines(entries []Entry) ([]string, error) {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return nil, errors.Wrap(err, "encoding entry")
		}
		lines = append(lines, string(line)+"\n")
	}
	return lines, nil
}
