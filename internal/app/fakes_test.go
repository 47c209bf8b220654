package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/retry"
)

// fakeAPI est une arborescence Stepik en mémoire.
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int64
	course   domain.Course
	sections map[int64]domain.Section
	units    map[int64]domain.Unit
	lessons  map[int64]domain.Lesson
	steps    map[int64]domain.Step
	// unitsErr fait échouer Units dès qu'un des ids demandés y figure.
	unitsErr map[int64]error
	cdn      string
}

type fakeLesson struct {
	title   string
	content []domain.Content
}

func newFakeAPI(courseID int64, title, cdn string) *fakeAPI {
	return &fakeAPI{
		nextID:   1000,
		course:   domain.Course{ID: courseID, Title: title},
		sections: make(map[int64]domain.Section),
		units:    make(map[int64]domain.Unit),
		lessons:  make(map[int64]domain.Lesson),
		steps:    make(map[int64]domain.Step),
		unitsErr: make(map[int64]error),
		cdn:      cdn,
	}
}

func (f *fakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

// video renvoie un bloc vidéo dont chaque qualité pointe vers le CDN de test.
func (f *fakeAPI) video(qualities ...string) domain.Content {
	vid := f.id()
	urls := make([]domain.VideoURL, 0, len(qualities))
	for _, q := range qualities {
		urls = append(urls, domain.VideoURL{Quality: q, URL: fmt.Sprintf("%s/v/%d/%s.mp4", f.cdn, vid, q)})
	}
	return domain.VideoContent{VideoID: vid, Duration: time.Minute, URLs: urls}
}

func (f *fakeAPI) addWeek(title string, lessons ...fakeLesson) domain.Section {
	sec := domain.Section{ID: f.id(), Title: title, Position: len(f.course.SectionIDs) + 1}
	for _, fl := range lessons {
		lesson := domain.Lesson{ID: f.id(), Title: fl.title}
		for i, c := range fl.content {
			st := domain.Step{ID: f.id(), LessonID: lesson.ID, Position: i + 1, Content: c}
			f.steps[st.ID] = st
			lesson.StepIDs = append(lesson.StepIDs, st.ID)
		}
		f.lessons[lesson.ID] = lesson
		unit := domain.Unit{ID: f.id(), LessonID: lesson.ID}
		f.units[unit.ID] = unit
		sec.UnitIDs = append(sec.UnitIDs, unit.ID)
	}
	f.sections[sec.ID] = sec
	f.course.SectionIDs = append(f.course.SectionIDs, sec.ID)
	return sec
}

func pick[T any](m map[int64]T, ids []int64) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := m[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (f *fakeAPI) Courses(ctx context.Context, ids []int64) ([]domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pick(map[int64]domain.Course{f.course.ID: f.course}, ids), nil
}

func (f *fakeAPI) Sections(ctx context.Context, ids []int64) ([]domain.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pick(f.sections, ids), nil
}

func (f *fakeAPI) Units(ctx context.Context, ids []int64) ([]domain.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if err, ok := f.unitsErr[id]; ok {
			return nil, err
		}
	}
	return pick(f.units, ids), nil
}

func (f *fakeAPI) Lessons(ctx context.Context, ids []int64) ([]domain.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pick(f.lessons, ids), nil
}

func (f *fakeAPI) Steps(ctx context.Context, ids []int64) ([]domain.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pick(f.steps, ids), nil
}

var _ ports.CourseAPI = (*fakeAPI)(nil)

// fakeCDN sert "/v/<id>/<quality>.mp4" avec un corps déterministe.
type fakeCDN struct {
	srv  *httptest.Server
	hits atomic.Int32
	// delay et status permettent de simuler lenteurs et pannes par chemin.
	mu     sync.Mutex
	delay  map[string]time.Duration
	status map[string]int
}

func newFakeCDN(t *testing.T) *fakeCDN {
	t.Helper()
	c := &fakeCDN{delay: make(map[string]time.Duration), status: make(map[string]int)}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.hits.Add(1)
		c.mu.Lock()
		d := c.delay[r.URL.Path]
		code := c.status[r.URL.Path]
		c.mu.Unlock()

		if d > 0 {
			time.Sleep(d)
		}
		if code != 0 {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(bodyFor(r.URL.Path)))
	}))
	t.Cleanup(c.srv.Close)
	return c
}

func (c *fakeCDN) URL() string { return c.srv.URL }

func (c *fakeCDN) setDelay(path string, d time.Duration) {
	c.mu.Lock()
	c.delay[path] = d
	c.mu.Unlock()
}

func (c *fakeCDN) setStatus(path string, code int) {
	c.mu.Lock()
	c.status[path] = code
	c.mu.Unlock()
}

func bodyFor(path string) string {
	return "<" + strings.TrimSuffix(strings.TrimPrefix(path, "/v/"), ".mp4") + ">"
}

// fakeConcat concatène réellement les fichiers listés dans le manifeste.
type fakeConcat struct {
	calls atomic.Int32
	err   error
}

func (f *fakeConcat) Concat(ctx context.Context, manifestPath, outputPath string) error {
	f.calls.Add(1)
	if f.err != nil {
		// simule une sortie partielle laissée par l'outil
		_ = os.WriteFile(outputPath, []byte("partial"), 0o644)
		return f.err
	}
	names, err := readManifest(manifestPath)
	if err != nil {
		return err
	}
	var merged []byte
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(filepath.Dir(manifestPath), name))
		if err != nil {
			return err
		}
		merged = append(merged, b...)
	}
	return os.WriteFile(outputPath, merged, 0o644)
}

func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			return nil, errors.New("malformed manifest line: " + line)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		names = append(names, strings.ReplaceAll(name, `'\''`, "'"))
	}
	return names, sc.Err()
}

func fastDownloadRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

func newTestScheduler(client *http.Client, limit int) (*Scheduler, *ProgressTracker) {
	tracker := NewProgressTracker(nil)
	s := NewScheduler(client, NewDynamicLimiter(limit), tracker, zerolog.Nop(), SchedulerOptions{
		ChunkSize:        16,
		Retry:            fastDownloadRetry(),
		ProgressInterval: 5 * time.Millisecond,
	})
	return s, tracker
}

func newTestPipeline(api ports.CourseAPI, client *http.Client, concat ports.Concatenator, limit int) *Pipeline {
	s, _ := newTestScheduler(client, limit)
	return NewPipeline(
		NewCourseResolver(api, zerolog.Nop()),
		s,
		NewAssembler(concat, zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return string(b)
}

func noPartFiles(t *testing.T, dir string) {
	t.Helper()
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && strings.HasSuffix(path, partSuffix) {
			t.Errorf("partial file left behind: %s", path)
		}
		return nil
	})
}
