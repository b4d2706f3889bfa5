package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/timetable"
	inmemkv "github.com/trezcool/roster/storage/kv/inmem"
	"github.com/trezcool/roster/testutil"
)

func setup(t *testing.T) (Service, core.KVStore) {
	kv := inmemkv.Open()
	return NewService(kv, &testutil.Logger{}, testutil.NewConfig()), kv
}

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

var errBoom = errors.New("boom")

// flakyKV fails writes to some keys & lets tests hook into reads.
type flakyKV struct {
	core.KVStore

	mu       sync.Mutex
	failKeys map[string]bool
	onGet    func(key string)
}

func newFlakyKV() *flakyKV {
	return &flakyKV{KVStore: inmemkv.Open()}
}

func (kv *flakyKV) failOn(keys ...string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.failKeys = make(map[string]bool, len(keys))
	for _, k := range keys {
		kv.failKeys[k] = true
	}
}

func (kv *flakyKV) fails(key string) bool {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return kv.failKeys[key]
}

func (kv *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	kv.mu.Lock()
	hook := kv.onGet
	kv.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return kv.KVStore.Get(ctx, key)
}

func (kv *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if kv.fails(key) {
		return errBoom
	}
	return kv.KVStore.Set(ctx, key, value)
}

func (kv *flakyKV) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if kv.fails(k) {
			return errBoom
		}
	}
	return kv.KVStore.Delete(ctx, keys...)
}

func theory(class, course string, weekday int, weeks string, periods ...int) NewEntry {
	return NewEntry{ClassName: class, CourseName: course, Kind: KindTheory, Weekday: weekday, Weeks: weeks, Periods: periods}
}

func training(class, course string, weekday int, weeks string, blocks ...string) NewEntry {
	return NewEntry{ClassName: class, CourseName: course, Kind: KindTraining, Weekday: weekday, Weeks: weeks, Blocks: blocks}
}

func createEntry(t *testing.T, svc Service, ne NewEntry) Entry {
	e, err := svc.Create(context.Background(), ne)
	if err != nil {
		t.Fatalf("createEntry() failed: %v", err)
	}
	return e
}

func ids(entries []Entry) []string {
	r := make([]string, 0, len(entries))
	for _, e := range entries {
		r = append(r, e.ID)
	}
	return r
}

func TestService_CRUD(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	all, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	math := createEntry(t, svc, theory("CS-1", "Math", 1, "1-16", 1, 2))
	weld := createEntry(t, svc, training("CS-1", "Welding", 3, "1-8", "AM"))
	assert.NotEmpty(t, math.ID)
	assert.Nil(t, math.Blocks)
	assert.Nil(t, weld.Periods)

	got, err := svc.GetByID(ctx, weld.ID)
	require.NoError(t, err)
	assert.Equal(t, weld, got)

	_, err = svc.GetByID(ctx, "lol")
	assert.Equal(t, ErrNotFound, err)

	room := "B-204"
	updated, err := svc.Update(ctx, math.ID, UpdateEntry{Kind: KindTheory, Weekday: 2, Room: &room, Teacher: &room, Weeks: &math.Weeks, Note: &math.Note})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Weekday)
	assert.Equal(t, "B-204", updated.Room)

	_, err = svc.Update(ctx, "lol", UpdateEntry{})
	assert.Equal(t, ErrNotFound, err)

	all, err = svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{math.ID, weld.ID}, ids(all))

	require.NoError(t, svc.Delete(ctx, math.ID))
	assert.Equal(t, ErrNotFound, svc.Delete(ctx, math.ID))
	assert.NoError(t, svc.Delete(ctx))

	all, err = svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{weld.ID}, ids(all))
}

func TestService_Query(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	algebra := createEntry(t, svc, theory("CS-1", "Algebra", 2, "1-8", 3, 4))
	physics := createEntry(t, svc, theory("CS-2", "Physics", 1, "9-16", 1))
	weld := createEntry(t, svc, training("CS-1", "Welding", 1, "1-16", "PM"))
	ne := theory("EE-1", "Circuits", 5, "", 5, 6)
	ne.Teacher = "Dr. Mbuyi"
	ne.Room = "Lab 3"
	circuits := createEntry(t, svc, ne)

	tests := []struct {
		name      string
		filter    *QueryFilter
		orderings []core.Ordering
		want      []Entry
		wantErr   bool
	}{
		{name: "all", want: []Entry{algebra, physics, weld, circuits}},
		{name: "class", filter: &QueryFilter{ClassName: "CS-1"}, want: []Entry{algebra, weld}},
		{name: "kind", filter: &QueryFilter{Kind: KindTraining}, want: []Entry{weld}},
		{name: "weekday", filter: &QueryFilter{Weekday: 1}, want: []Entry{physics, weld}},
		{name: "week 3", filter: &QueryFilter{Week: 3}, want: []Entry{algebra, weld, circuits}},
		{name: "week 12", filter: &QueryFilter{Week: 12}, want: []Entry{physics, weld, circuits}},
		{name: "teacher", filter: &QueryFilter{Teacher: "Dr. Mbuyi"}, want: []Entry{circuits}},
		{name: "search course", filter: &QueryFilter{Search: "phys"}, want: []Entry{physics}},
		{name: "search room", filter: &QueryFilter{Search: "lab"}, want: []Entry{circuits}},
		{name: "search (unknown)", filter: &QueryFilter{Search: "lol"}, want: []Entry{}},
		{name: "combo", filter: &QueryFilter{ClassName: "CS-1", Weekday: 1, Week: 2}, want: []Entry{weld}},
		{
			name: "order by weekday,start", orderings: []core.Ordering{{Field: "weekday", Ascending: true}, {Field: "start", Ascending: true}},
			want: []Entry{physics, weld, algebra, circuits},
		},
		{
			name: "order by -class_name,course_name", orderings: []core.Ordering{{Field: "class_name"}, {Field: "course_name", Ascending: true}},
			want: []Entry{circuits, physics, algebra, weld},
		},
		{name: "unknown ordering", orderings: []core.Ordering{{Field: "lol"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.filter != nil {
				tt.filter.Clean()
			}
			got, err := svc.Query(ctx, tt.filter, tt.orderings)
			if tt.wantErr {
				_, ok := err.(*core.ValidationError)
				assert.True(t, ok, "want *core.ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	classes, err := svc.Classes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS-1", "CS-2", "EE-1"}, classes)
}

func TestService_UndoRedo(t *testing.T) {
	svc, kv := setup(t) // history depth: 3
	ctx := context.Background()

	_, err := svc.Undo(ctx)
	assert.Equal(t, ErrNothingToUndo, err)
	_, err = svc.Redo(ctx)
	assert.Equal(t, ErrNothingToRedo, err)

	e1 := createEntry(t, svc, theory("A", "One", 1, "", 1))
	e2 := createEntry(t, svc, theory("A", "Two", 1, "", 2))
	e3 := createEntry(t, svc, theory("A", "Three", 1, "", 3))
	createEntry(t, svc, theory("A", "Four", 1, "", 4))

	hist, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, HistoryInfo{Undo: 3, Redo: 0}, hist) // oldest snapshot dropped

	entries, err := svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e2.ID, e3.ID}, ids(entries))

	entries, err = svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e2.ID}, ids(entries))

	entries, err = svc.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e2.ID, e3.ID}, ids(entries))

	hist, err = svc.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, HistoryInfo{Undo: 2, Redo: 1}, hist)

	// a new change clears the redo stack
	require.NoError(t, svc.Delete(ctx, e1.ID))
	_, err = svc.Redo(ctx)
	assert.Equal(t, ErrNothingToRedo, err)

	entries, err = svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e2.ID, e3.ID}, ids(entries))

	_, err = svc.Undo(ctx)
	require.NoError(t, err)
	entries, err = svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID}, ids(entries))
	_, err = svc.Undo(ctx)
	assert.Equal(t, ErrNothingToUndo, err)

	// empty stacks are not kept around
	_, err = kv.Get(ctx, "test:schedule:undo")
	assert.Equal(t, core.ErrKeyNotFound, errors.Cause(err))
}

func TestService_noHistory(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Schedule.HistoryDepth = 0
	svc := NewService(inmemkv.Open(), &testutil.Logger{}, conf)
	ctx := context.Background()

	createEntry(t, svc, theory("A", "One", 1, "", 1))
	_, err := svc.Undo(ctx)
	assert.Equal(t, ErrNothingToUndo, err)
}

func TestService_ReplaceAppend(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	old := createEntry(t, svc, theory("A", "Old", 1, "", 1))

	entries, err := svc.Replace(ctx, []NewEntry{theory("B", "New", 2, "", 2), training("B", "Lab", 3, "", "P1")})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, old.ID, entries[0].ID)
	assert.Equal(t, "New", entries[0].CourseName)

	entries, err = svc.Append(ctx, []NewEntry{theory("C", "More", 4, "", 7)})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// an upload can be undone as a whole
	entries, err = svc.Undo(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	entries, err = svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, ids(entries))
}

func TestService_BackupRestore(t *testing.T) {
	svc, kv := setup(t)
	ctx := context.Background()

	now := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	_, err := svc.BackupInfo(ctx)
	assert.Equal(t, ErrNoBackup, err)
	_, err = svc.Restore(ctx)
	assert.Equal(t, ErrNoBackup, err)
	_, err = svc.BackupDiff(ctx)
	assert.Equal(t, ErrNoBackup, err)

	e1 := createEntry(t, svc, theory("A", "One", 1, "", 1))
	e2 := createEntry(t, svc, theory("A", "Two", 1, "", 2))

	info, err := svc.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, BackupInfo{SavedAt: now, Count: 2}, info)

	// backup is a byte for byte copy of the roster key
	main, err := kv.Get(ctx, "test:schedule")
	require.NoError(t, err)
	backup, err := kv.Get(ctx, "test:schedule:backup")
	require.NoError(t, err)
	assert.Equal(t, main, backup)

	info, err = svc.BackupInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Count)
	assert.True(t, info.SavedAt.Equal(now))

	require.NoError(t, svc.Delete(ctx, e1.ID))
	e3 := createEntry(t, svc, theory("A", "Three", 1, "", 3))

	diff, err := svc.BackupDiff(ctx)
	require.NoError(t, err)
	// a restore brings e1 back & drops e3
	assert.True(t, strings.HasPrefix(diff, "--- current\n+++ backup\n"), diff)
	assert.Contains(t, diff, "+{\"id\":\""+e1.ID)
	assert.Contains(t, diff, "-{\"id\":\""+e3.ID)
	assert.NotContains(t, diff, "-{\"id\":\""+e2.ID)
	assert.NotContains(t, diff, "+{\"id\":\""+e2.ID)

	entries, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e2.ID}, ids(entries))

	diff, err = svc.BackupDiff(ctx)
	require.NoError(t, err)
	assert.Empty(t, diff)

	// restoring can be undone
	entries, err = svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{e2.ID, e3.ID}, ids(entries))
}

func TestService_BackupEmpty(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	info, err := svc.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Count)

	createEntry(t, svc, theory("A", "One", 1, "", 1))
	entries, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_FreeTime(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	createEntry(t, svc, theory("CS-1", "Math", 1, "1-8", 1, 2))
	createEntry(t, svc, theory("CS-1", "Physics", 1, "9-16", 3, 4))
	createEntry(t, svc, training("CS-1", "Welding", 1, "", "P1"))
	createEntry(t, svc, theory("CS-2", "Math", 1, "", 5, 6, 7, 8))
	createEntry(t, svc, theory("CS-1", "Art", 2, "", 9))

	iv := func(s, e string) timetable.Interval {
		i, err := timetable.ParseInterval(s, e)
		require.NoError(t, err)
		return i
	}

	got, err := svc.FreeTime(ctx, "CS-1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []timetable.Interval{iv("09:40", "12:00"), iv("16:00", "18:00"), iv("19:00", "21:30")}, got)

	got, err = svc.FreeTime(ctx, "CS-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []timetable.Interval{iv("08:00", "10:00"), iv("11:40", "12:00"), iv("16:00", "18:00"), iv("19:00", "21:30")}, got)

	// all weeks
	got, err = svc.FreeTime(ctx, " CS-1 ", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []timetable.Interval{iv("09:40", "10:00"), iv("11:40", "12:00"), iv("16:00", "18:00"), iv("19:00", "21:30")}, got)

	got, err = svc.FreeTime(ctx, "nobody", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, timetable.DefaultFree, got)

	_, err = svc.FreeTime(ctx, "", 1, 3)
	assert.IsType(t, &core.ValidationError{}, err)
	_, err = svc.FreeTime(ctx, "CS-1", 8, 3)
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestNewEntry_Validate(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name       string
		entry      NewEntry
		wantFields []string
	}{
		{name: "valid theory", entry: theory(" CS-1 ", "Math", 1, "1-16", 1, 2)},
		{name: "valid training", entry: training("CS-1", "Lab", 7, "", "am", " p1")},
		{name: "missing names", entry: theory(" ", "", 1, "", 1), wantFields: []string{"class_name", "course_name"}},
		{name: "bad kind", entry: NewEntry{ClassName: "A", CourseName: "B", Kind: "lol", Weekday: 1}, wantFields: []string{"kind"}},
		{name: "bad weekday", entry: theory("A", "B", 8, "", 1), wantFields: []string{"weekday"}},
		{name: "bad weeks", entry: theory("A", "B", 1, "9-1", 1), wantFields: []string{"weeks"}},
		{name: "bad periods", entry: theory("A", "B", 1, "", 1, 42), wantFields: []string{"periods"}},
		{name: "theory without periods", entry: theory("A", "B", 1, ""), wantFields: []string{"periods"}},
		{name: "bad blocks", entry: training("A", "B", 1, "", "XX"), wantFields: []string{"blocks"}},
		{name: "training without blocks", entry: training("A", "B", 1, ""), wantFields: []string{"blocks"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate(validate)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validator.ValidationErrors, got %v", err)
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}

	ne := training(" CS-1 ", " Lab ", 1, " 1-4 ", " am ")
	require.NoError(t, ne.Validate(validate))
	assert.Equal(t, "CS-1", ne.ClassName)
	assert.Equal(t, "1-4", ne.Weeks)
	assert.Equal(t, []string{"AM"}, ne.Blocks)
}

func TestUpdateEntry_Validate(t *testing.T) {
	validate := newValidator()
	orig := Entry{ID: "1", ClassName: "CS-1", CourseName: "Math", Teacher: "T", Kind: KindTheory, Weekday: 1, Weeks: "1-8", Periods: []int{1, 2}, Room: "R1"}

	// blanks keep current values
	ue := UpdateEntry{}
	require.NoError(t, ue.Validate(orig, validate))
	assert.Equal(t, orig, ue.apply(orig))

	// clearing optional fields
	empty := ""
	ue = UpdateEntry{Room: &empty, Periods: []int{3}}
	require.NoError(t, ue.Validate(orig, validate))
	got := ue.apply(orig)
	assert.Equal(t, "", got.Room)
	assert.Equal(t, []int{3}, got.Periods)

	// switching kind requires blocks
	ue = UpdateEntry{Kind: KindTraining}
	err := ue.Validate(orig, validate)
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "want validator.ValidationErrors, got %v", err)
	assert.Equal(t, "blocks", vErrs[0].Field())

	ue = UpdateEntry{Kind: KindTraining, Blocks: []string{"pm"}}
	require.NoError(t, ue.Validate(orig, validate))
	got = ue.apply(orig)
	assert.Equal(t, KindTraining, got.Kind)
	assert.Equal(t, []string{"PM"}, got.Blocks)
	assert.Nil(t, got.Periods)

	bad := "lol"
	ue = UpdateEntry{Weeks: &bad}
	assert.Error(t, ue.Validate(orig, validate))
}

func TestService_Update_partial(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	math := createEntry(t, svc, NewEntry{
		ClassName: "CS-1", CourseName: "Math", Teacher: "T", Kind: KindTheory, Weekday: 1, Weeks: "1-8", Periods: []int{1, 2}, Room: "R1",
	})

	// not validated: blank fields keep their value
	room := "B-204"
	got, err := svc.Update(ctx, math.ID, UpdateEntry{Room: &room})
	require.NoError(t, err)
	want := math
	want.Room = room
	assert.Equal(t, want, got)

	got, err = svc.Update(ctx, math.ID, UpdateEntry{Kind: KindTraining, Blocks: []string{"AM"}})
	require.NoError(t, err)
	assert.Equal(t, KindTraining, got.Kind)
	assert.Equal(t, []string{"AM"}, got.Blocks)
	assert.Nil(t, got.Periods)
	assert.Equal(t, "Math", got.CourseName)
	assert.Equal(t, 1, got.Weekday)
}

func TestService_failedWrites(t *testing.T) {
	kv := newFlakyKV()
	svc := NewService(kv, &testutil.Logger{}, testutil.NewConfig())
	ctx := context.Background()

	e1 := createEntry(t, svc, theory("A", "One", 1, "", 1))

	check := func(t *testing.T, wantIDs []string, want HistoryInfo) {
		kv.failOn()
		entries, err := svc.Query(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, wantIDs, ids(entries))
		info, err := svc.History(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, info)
	}

	t.Run("roster write fails", func(t *testing.T) {
		kv.failOn("test:schedule")
		_, err := svc.Create(ctx, theory("A", "Two", 1, "", 2))
		assert.Equal(t, errBoom, errors.Cause(err))
		check(t, []string{e1.ID}, HistoryInfo{Undo: 1})
	})

	t.Run("undo history write fails", func(t *testing.T) {
		kv.failOn("test:schedule:undo")
		_, err := svc.Create(ctx, theory("A", "Two", 1, "", 2))
		assert.Equal(t, errBoom, errors.Cause(err))
		check(t, []string{e1.ID}, HistoryInfo{Undo: 1})
	})

	t.Run("undo: roster write fails", func(t *testing.T) {
		kv.failOn("test:schedule")
		_, err := svc.Undo(ctx)
		assert.Equal(t, errBoom, errors.Cause(err))
		check(t, []string{e1.ID}, HistoryInfo{Undo: 1})
	})

	t.Run("undo: redo history write fails", func(t *testing.T) {
		kv.failOn("test:schedule:redo")
		_, err := svc.Undo(ctx)
		assert.Equal(t, errBoom, errors.Cause(err))
		check(t, []string{e1.ID}, HistoryInfo{Undo: 1})
	})

	t.Run("undo still restores the previous roster", func(t *testing.T) {
		entries, err := svc.Undo(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
		check(t, []string{}, HistoryInfo{Redo: 1})
	})

	t.Run("clearing redo history fails", func(t *testing.T) {
		kv.failOn("test:schedule:redo")
		_, err := svc.Create(ctx, theory("A", "Two", 1, "", 2))
		assert.Equal(t, errBoom, errors.Cause(err))
		check(t, []string{}, HistoryInfo{Redo: 1})

		entries, err := svc.Redo(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{e1.ID}, ids(entries))
	})
}

func TestService_concurrentMutations(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Schedule.HistoryDepth = 100
	svc := NewService(inmemkv.Open(), &testutil.Logger{}, conf)
	ctx := context.Background()

	const n, deleted = 30, 10
	created := make(chan Entry, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := svc.Create(ctx, theory("A", fmt.Sprintf("Course %d", i), 1+i%5, "", 1+i%11))
			if assert.NoError(t, err) {
				created <- e
			}
		}(i)
	}
	wg.Wait()
	close(created)

	toDelete := make([]string, 0, n)
	for e := range created {
		toDelete = append(toDelete, e.ID)
	}
	require.Len(t, toDelete, n)
	toDelete = toDelete[:deleted]

	for _, id := range toDelete {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, svc.Delete(ctx, id))
		}(id)
	}
	wg.Wait()

	entries, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, n-deleted)

	info, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, HistoryInfo{Undo: n + deleted}, info)

	// every mutation was recorded: undoing all of them empties the roster
	for i := 0; i < n+deleted; i++ {
		_, err = svc.Undo(ctx)
		require.NoError(t, err)
	}
	entries, err = svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_Restore_locksBackupRead(t *testing.T) {
	kv := newFlakyKV()
	svc := NewService(kv, &testutil.Logger{}, testutil.NewConfig())
	ctx := context.Background()

	createEntry(t, svc, theory("A", "One", 1, "", 1))
	_, err := svc.Backup(ctx)
	require.NoError(t, err)
	createEntry(t, svc, theory("A", "Two", 1, "", 2))

	// while the backup is read, another mutation must wait for the restore to finish
	var once sync.Once
	done := make(chan struct{})
	interleaved := false
	kv.mu.Lock()
	kv.onGet = func(key string) {
		if key != "test:schedule:backup" {
			return
		}
		once.Do(func() {
			go func() {
				defer close(done)
				_, cErr := svc.Create(ctx, theory("A", "Three", 1, "", 3))
				assert.NoError(t, cErr)
			}()
			select {
			case <-done:
				interleaved = true
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
	kv.mu.Unlock()

	entries, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	<-done
	assert.False(t, interleaved)

	entries, err = svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
