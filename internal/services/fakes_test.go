package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type inTxKey struct{}

// fakeTx runs one transaction at a time, which stands in for the row
// locks of the real database. Nested calls join the outer transaction.
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fn(context.WithValue(ctx, inTxKey{}, true))
}

var errLockOutsideTx = errors.New("row lock requested outside of a transaction")

type memUsers struct {
	mu   sync.Mutex
	rows map[string]models.User
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{rows: make(map[string]models.User)}
	for _, u := range users {
		m.rows[u.ID] = u
	}
	return m
}

func (m *memUsers) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == user.Email {
			return ErrUserAlreadyExists
		}
	}
	m.rows[user.ID] = *user
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[user.ID]; !ok {
		return ErrUserNotFound
	}
	m.rows[user.ID] = *user
	return nil
}

func (m *memUsers) ListUsers(_ context.Context, offset, limit int) ([]*models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*models.User
	for _, id := range window(ids, offset, limit) {
		u := m.rows[id]
		out = append(out, &u)
	}
	return out, len(ids), nil
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{rows: make(map[string]models.Session)}
}

func (m *memSessions) CreateSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[session.ID] = *session
	return nil
}

func (m *memSessions) GetSessionByID(_ context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *memSessions) GetSessionByRefreshToken(_ context.Context, refreshToken, fingerprint string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.RefreshToken == refreshToken && s.Fingerprint == fingerprint {
			return &s, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (m *memSessions) UpdateSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[session.ID]; !ok {
		return ErrSessionNotFound
	}
	m.rows[session.ID] = *session
	return nil
}

func (m *memSessions) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.rows, sessionID)
	return nil
}

func (m *memSessions) DeleteSessionsByUserID(_ context.Context, userID string) (int64, error) {
	return m.deleteWhere(func(s models.Session) bool { return s.UserID == userID }), nil
}

func (m *memSessions) DeleteSessionsByFingerprint(_ context.Context, userID, fingerprint string) (int64, error) {
	return m.deleteWhere(func(s models.Session) bool {
		return s.UserID == userID && s.Fingerprint == fingerprint
	}), nil
}

func (m *memSessions) deleteWhere(match func(models.Session) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if match(s) {
			delete(m.rows, id)
			n++
		}
	}
	return n
}

func (m *memSessions) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.rows {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type memTasks struct {
	mu        sync.Mutex
	rows      map[int64]*models.Task
	nextID    int64
	seq       map[string]int
	updateErr error
	updates   int
}

func newMemTasks() *memTasks {
	return &memTasks{
		rows: make(map[int64]*models.Task),
		seq:  make(map[string]int),
	}
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	c.Files = append([]models.File(nil), t.Files...)
	if t.Extension != nil {
		ext := *t.Extension
		c.Extension = &ext
	}
	if t.ExtensionApproved != nil {
		approved := *t.ExtensionApproved
		c.ExtensionApproved = &approved
	}
	return &c
}

func (m *memTasks) NextSequence(_ context.Context, priority models.Priority, period string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(priority) + "/" + period
	m.seq[key]++
	return m.seq[key], nil
}

func (m *memTasks) CreateTask(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Abbreviation == task.Abbreviation {
			return fmt.Errorf("%w: abbreviation %s", ErrConflict, task.Abbreviation)
		}
	}
	m.nextID++
	task.ID = m.nextID
	m.rows[task.ID] = cloneTask(task)
	return nil
}

func (m *memTasks) GetTaskByID(_ context.Context, taskID int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (m *memTasks) LockTaskByID(ctx context.Context, taskID int64) (*models.Task, error) {
	if ctx.Value(inTxKey{}) == nil {
		return nil, errLockOutsideTx
	}
	return m.GetTaskByID(ctx, taskID)
}

func (m *memTasks) UpdateTask(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.rows[task.ID]; !ok {
		return ErrTaskNotFound
	}
	m.updates++
	m.rows[task.ID] = cloneTask(task)
	return nil
}

func (m *memTasks) DeleteTask(_ context.Context, taskID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[taskID]; !ok {
		return ErrTaskNotFound
	}
	delete(m.rows, taskID)
	return nil
}

func (m *memTasks) ListTasks(_ context.Context, query TaskQuery) ([]*models.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.Task
	for _, t := range m.rows {
		if query.VisibleTo != nil && !t.IsAssignee(*query.VisibleTo) && !t.IsCreator(*query.VisibleTo) {
			continue
		}
		if !matchesFilter(t, query.Filter, query.Today) {
			continue
		}
		matched = append(matched, cloneTask(t))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return window(matched, query.Offset, query.Limit), len(matched), nil
}

func matchesFilter(t *models.Task, filter models.TaskFilter, today time.Time) bool {
	switch filter {
	case models.TaskFilterPending:
		return t.State.IsOpen()
	case models.TaskFilterCompleted:
		return t.State.IsCompleted()
	case models.TaskFilterOverdue:
		return t.IsOverdue(today)
	case models.TaskFilterDateExtension:
		return t.Extension != nil
	case models.TaskFilterOnHold:
		return t.State.IsOnHold()
	}
	return true
}

func (m *memTasks) ExistingTaskIDs(_ context.Context, ids []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]bool)
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

type memActivity struct {
	mu        sync.Mutex
	rows      []models.ActivityLog
	nextID    int64
	createErr error
}

func (m *memActivity) CreateActivityLog(_ context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	entry.ID = m.nextID
	m.rows = append(m.rows, *entry)
	return nil
}

func (m *memActivity) DeleteActivityLogsByTaskID(_ context.Context, taskID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, e := range m.rows {
		if e.TaskID != nil && *e.TaskID == taskID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.rows = kept
	return n, nil
}

func (m *memActivity) ListActivityLogs(_ context.Context, userID *string, offset, limit int) ([]*models.ActivityLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.ActivityLog
	for i := len(m.rows) - 1; i >= 0; i-- {
		e := m.rows[i]
		if userID != nil && e.UserID != *userID {
			continue
		}
		matched = append(matched, &e)
	}
	return window(matched, offset, limit), len(matched), nil
}

func (m *memActivity) all() []models.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityLog(nil), m.rows...)
}

func (m *memActivity) forTask(taskID int64) []models.ActivityLog {
	var out []models.ActivityLog
	for _, e := range m.all() {
		if e.TaskID != nil && *e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

type memCronjobs struct {
	mu     sync.Mutex
	rows   map[int64]models.Cronjob
	nextID int64
}

func newMemCronjobs() *memCronjobs {
	return &memCronjobs{rows: make(map[int64]models.Cronjob)}
}

func (m *memCronjobs) CreateCronjob(_ context.Context, job *models.Cronjob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	m.rows[job.ID] = *job
	return nil
}

func (m *memCronjobs) GetCronjobByID(_ context.Context, cronjobID int64) (*models.Cronjob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[cronjobID]
	if !ok {
		return nil, ErrCronjobNotFound
	}
	return &job, nil
}

func (m *memCronjobs) UpdateCronjob(_ context.Context, job *models.Cronjob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[job.ID]; !ok {
		return ErrCronjobNotFound
	}
	m.rows[job.ID] = *job
	return nil
}

func (m *memCronjobs) DeleteCronjob(_ context.Context, cronjobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[cronjobID]; !ok {
		return ErrCronjobNotFound
	}
	delete(m.rows, cronjobID)
	return nil
}

func (m *memCronjobs) ListCronjobs(_ context.Context, offset, limit int) ([]*models.Cronjob, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Cronjob
	for _, job := range m.rows {
		job := job
		all = append(all, &job)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, offset, limit), len(all), nil
}

func (m *memCronjobs) ListCronjobsByTimeOfDay(_ context.Context, tod models.TimeOfDay) ([]*models.Cronjob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Cronjob
	for _, job := range m.rows {
		job := job
		if job.TimeOfDay == tod {
			out = append(out, &job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type sentNotification struct {
	UserID       string
	Notification models.Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(userID string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Notification: n})
}

func (r *recordingNotifier) all() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotification(nil), r.sent...)
}

func (r *recordingNotifier) last() sentNotification {
	all := r.all()
	if len(all) == 0 {
		return sentNotification{}
	}
	return all[len(all)-1]
}

type memFiles struct {
	mu      sync.Mutex
	tasks   map[int64]map[string][]byte
	saveErr error
	// failAfter makes Save fail once this many files were saved.
	failAfter int
	saved     int
}

func newMemFiles() *memFiles {
	return &memFiles{tasks: make(map[int64]map[string][]byte), failAfter: -1}
}

func (m *memFiles) Save(taskID int64, name, contentType string, r io.Reader) (models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil && m.failAfter >= 0 && m.saved >= m.failAfter {
		return models.File{}, m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.File{}, err
	}
	if m.tasks[taskID] == nil {
		m.tasks[taskID] = make(map[string][]byte)
	}
	m.tasks[taskID][name] = data
	m.saved++
	return models.File{
		Name: name,
		Path: fmt.Sprintf("%d/%s", taskID, name),
		Type: contentType,
		Size: int64(len(data)),
	}, nil
}

func (m *memFiles) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var taskID int64
	var name string
	_, err := fmt.Sscanf(path, "%d/%s", &taskID, &name)
	if err != nil {
		return err
	}
	if _, ok := m.tasks[taskID][name]; !ok {
		return errors.New("no such file")
	}
	delete(m.tasks[taskID], name)
	return nil
}

func (m *memFiles) RemoveTask(taskID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *memFiles) TaskIDs() ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memFiles) names(taskID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name := range m.tasks[taskID] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *memFiles) hasTask(taskID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[taskID]
	return ok
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
