package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
)

// testClock is a controllable time source.
type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock(start time.Time) *testClock { return &testClock{current: start} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// memDB is an in-memory stand-in for the PostgreSQL repositories. It
// implements the client, plan, membership, attendance and user repositories
// and mirrors the SQL semantics the services depend on, including the
// one-open-visit-per-day unique index.
type memDB struct {
	mu          sync.Mutex
	nextID      int64
	clients     map[int64]*models.Client
	plans       map[int64]*models.MembershipPlan
	memberships []*models.Membership
	attendances []*models.Attendance
	users       []*models.User

	// failures injected per method name
	errs map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		clients: map[int64]*models.Client{},
		plans:   map[int64]*models.MembershipPlan{},
		errs:    map[string]error{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) fail(method string) error { return m.errs[method] }

// snapshot/restore back the fake transaction runner.
func (m *memDB) snapshot() (ms []*models.Membership, as []*models.Attendance) {
	for _, x := range m.memberships {
		cp := *x
		ms = append(ms, &cp)
	}
	for _, x := range m.attendances {
		cp := *x
		as = append(as, &cp)
	}
	return ms, as
}

type memTx struct {
	db    *memDB
	calls int
}

func (t *memTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.calls++
	t.db.mu.Lock()
	ms, as := t.db.snapshot()
	t.db.mu.Unlock()
	if err := fn(nil); err != nil {
		t.db.mu.Lock()
		t.db.memberships, t.db.attendances = ms, as
		t.db.mu.Unlock()
		return err
	}
	return nil
}

// --- seeding helpers ---

func (m *memDB) addClient(name, qr string) *models.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Client{ID: m.id(), Name: name, QRCode: qr}
	m.clients[c.ID] = c
	return c
}

func (m *memDB) addPlan(name string, price float64, days int, active bool) *models.MembershipPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.MembershipPlan{ID: m.id(), Name: name, Price: price, DurationDays: days, IsActive: active}
	m.plans[p.ID] = p
	return p
}

func (m *memDB) addMembership(clientID, planID int64, start, end time.Time, status string) *models.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := &models.Membership{ID: m.id(), ClientID: clientID, PlanID: planID, StartDate: start, EndDate: end, Status: status}
	m.memberships = append(m.memberships, ms)
	return ms
}

func (m *memDB) addAttendance(clientID int64, checkIn time.Time, checkOut *time.Time) *models.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	y, mo, d := checkIn.Date()
	a := &models.Attendance{ID: m.id(), ClientID: clientID, CheckIn: checkIn, CheckInDay: time.Date(y, mo, d, 0, 0, 0, 0, checkIn.Location()), CheckOut: checkOut, Method: models.CheckInMethodQR}
	m.attendances = append(m.attendances, a)
	return a
}

func (m *memDB) addUser(name, role string, active bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: m.id(), Name: name, Email: strings.ToLower(name) + "@gym.test", Role: role, IsActive: active}
	m.users = append(m.users, u)
	return u
}

func (m *memDB) membershipsOf(clientID int64) []models.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Membership
	for _, x := range m.memberships {
		if x.ClientID == clientID {
			out = append(out, *x)
		}
	}
	return out
}

func (m *memDB) attendancesOf(clientID int64) []models.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Attendance
	for _, x := range m.attendances {
		if x.ClientID == clientID {
			out = append(out, *x)
		}
	}
	return out
}

func (m *memDB) joined(x *models.Membership) *models.Membership {
	cp := *x
	if p, ok := m.plans[x.PlanID]; ok {
		pc := *p
		cp.Plan = &pc
	}
	if c, ok := m.clients[x.ClientID]; ok {
		cc := *c
		cp.Client = &cc
	}
	return &cp
}

// --- ClientRepository ---

func (m *memDB) CreateClient(ctx context.Context, c *models.Client) (int64, error) {
	if err := m.fail("CreateClient"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.clients {
		if existing.QRCode == c.QRCode {
			return 0, repositories.ErrDuplicateKey
		}
	}
	c.ID = m.id()
	cp := *c
	m.clients[c.ID] = &cp
	return c.ID, nil
}

func (m *memDB) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memDB) GetClientByQRCode(ctx context.Context, qr string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.QRCode == strings.TrimSpace(qr) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memDB) GetClients(ctx context.Context, page, limit int, search string) ([]models.Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Client{}
	for _, c := range m.clients {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memDB) UpdateClient(ctx context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memDB) UpdateMedicalNotes(ctx context.Context, id int64, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.MedicalNotes = notes
	return nil
}

func (m *memDB) DeleteClient(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return repositories.ErrNotFound
	}
	for _, x := range m.memberships {
		if x.ClientID == id {
			return repositories.ErrForeignKey
		}
	}
	delete(m.clients, id)
	return nil
}

// --- PlanRepository ---

func (m *memDB) CreatePlan(ctx context.Context, p *models.MembershipPlan) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	cp := *p
	m.plans[p.ID] = &cp
	return p.ID, nil
}

func (m *memDB) GetPlanByID(ctx context.Context, id int64) (*models.MembershipPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) GetPlans(ctx context.Context, activeOnly bool) ([]models.MembershipPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.MembershipPlan{}
	for _, p := range m.plans {
		if !activeOnly || p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (m *memDB) UpdatePlan(ctx context.Context, p *models.MembershipPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *memDB) DeactivatePlan(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.IsActive = false
	return nil
}

// --- MembershipRepository ---

func (m *memDB) CreateMembership(ctx context.Context, exec repositories.SQLExecutor, ms *models.Membership) (int64, error) {
	if err := m.fail("CreateMembership"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ms.ID = m.id()
	cp := *ms
	m.memberships = append(m.memberships, &cp)
	return ms.ID, nil
}

func (m *memDB) GetMembershipByID(ctx context.Context, exec repositories.SQLExecutor, id int64) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.memberships {
		if x.ID == id {
			return m.joined(x), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memDB) FindActive(ctx context.Context, exec repositories.SQLExecutor, clientID int64, at time.Time) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Membership
	for _, x := range m.memberships {
		if x.ClientID == clientID && x.IsCurrentAt(at) && (best == nil || x.EndDate.After(best.EndDate)) {
			best = x
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	return m.joined(best), nil
}

func (m *memDB) FindUpcoming(ctx context.Context, exec repositories.SQLExecutor, clientID int64, at time.Time) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Membership
	for _, x := range m.memberships {
		if x.ClientID == clientID && x.Status == models.MembershipActive && x.StartDate.After(at) &&
			(best == nil || x.StartDate.Before(best.StartDate)) {
			best = x
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	return m.joined(best), nil
}

func (m *memDB) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.memberships {
		if x.ID == id {
			x.Status = status
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memDB) ExpireMembership(ctx context.Context, exec repositories.SQLExecutor, id int64, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.memberships {
		if x.ID == id {
			x.Status = models.MembershipExpired
			x.EndDate = end
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memDB) CancelUpcoming(ctx context.Context, exec repositories.SQLExecutor, clientID int64, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.memberships {
		if x.ClientID == clientID && x.Status == models.MembershipActive && x.StartDate.After(at) {
			x.Status = models.MembershipCancelled
			n++
		}
	}
	return n, nil
}

func (m *memDB) GetByClient(ctx context.Context, clientID int64) ([]models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Membership{}
	for i := len(m.memberships) - 1; i >= 0; i-- {
		if m.memberships[i].ClientID == clientID {
			out = append(out, *m.joined(m.memberships[i]))
		}
	}
	return out, nil
}

func (m *memDB) GetCurrentForClients(ctx context.Context, ids []int64, at time.Time) ([]models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []models.Membership{}
	for _, x := range m.memberships {
		if want[x.ClientID] && x.Status == models.MembershipActive && !x.EndDate.Before(at) {
			out = append(out, *m.joined(x))
		}
	}
	return out, nil
}

func (m *memDB) GetExpiring(ctx context.Context, now, until time.Time) ([]models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Membership{}
	for _, x := range m.memberships {
		if x.Status == models.MembershipActive && !x.StartDate.After(now) && !x.EndDate.After(until) {
			out = append(out, *m.joined(x))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (m *memDB) expireLapsed(clientID int64, at time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.memberships {
		if (clientID == 0 || x.ClientID == clientID) && x.Status == models.MembershipActive && x.EndDate.Before(at) {
			x.Status = models.MembershipExpired
			n++
		}
	}
	return n
}

func (m *memDB) ExpireLapsed(ctx context.Context, at time.Time) (int64, error) {
	return m.expireLapsed(0, at), nil
}

func (m *memDB) ExpireLapsedForClient(ctx context.Context, clientID int64, at time.Time) (int64, error) {
	return m.expireLapsed(clientID, at), nil
}

// --- AttendanceRepository ---

func (m *memDB) withName(a *models.Attendance) models.Attendance {
	cp := *a
	if c, ok := m.clients[a.ClientID]; ok {
		cp.ClientName = c.Name
	}
	return cp
}

func (m *memDB) CreateAttendance(ctx context.Context, a *models.Attendance) (int64, error) {
	if err := m.fail("CreateAttendance"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.attendances {
		if x.ClientID == a.ClientID && x.CheckOut == nil && x.CheckInDay.Equal(a.CheckInDay) {
			return 0, repositories.ErrDuplicateKey
		}
	}
	a.ID = m.id()
	cp := *a
	m.attendances = append(m.attendances, &cp)
	return a.ID, nil
}

func (m *memDB) FindOpenSince(ctx context.Context, clientID int64, since time.Time) (*models.Attendance, error) {
	if err := m.fail("FindOpenSince"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Attendance
	for _, x := range m.attendances {
		if x.ClientID == clientID && x.CheckOut == nil && !x.CheckIn.Before(since) &&
			(best == nil || x.CheckIn.After(best.CheckIn)) {
			best = x
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	cp := m.withName(best)
	return &cp, nil
}

func (m *memDB) CloseAttendance(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.attendances {
		if x.ID == id && x.CheckOut == nil {
			t := at
			x.CheckOut = &t
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memDB) GetOpenBefore(ctx context.Context, before time.Time) ([]models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Attendance{}
	for _, x := range m.attendances {
		if x.CheckOut == nil && x.CheckIn.Before(before) {
			out = append(out, m.withName(x))
		}
	}
	return out, nil
}

func (m *memDB) GetSince(ctx context.Context, since time.Time) ([]models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Attendance{}
	for _, x := range m.attendances {
		if !x.CheckIn.Before(since) {
			out = append(out, m.withName(x))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.After(out[j].CheckIn) })
	return out, nil
}

func (m *memDB) GetHistory(ctx context.Context, from, to *time.Time, page, limit int) ([]models.Attendance, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.Attendance{}
	for _, x := range m.attendances {
		if from != nil && x.CheckIn.Before(*from) {
			continue
		}
		if to != nil && x.CheckIn.After(*to) {
			continue
		}
		all = append(all, m.withName(x))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CheckIn.After(all[j].CheckIn) })
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *memDB) GetRecentByClient(ctx context.Context, clientID int64, limit int) ([]models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Attendance{}
	for _, x := range m.attendances {
		if x.ClientID == clientID {
			out = append(out, m.withName(x))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.After(out[j].CheckIn) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDB) CountByClientSince(ctx context.Context, clientID int64, since *time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.attendances {
		if x.ClientID == clientID && (since == nil || !x.CheckIn.Before(*since)) {
			n++
		}
	}
	return n, nil
}

// --- UserRepository ---

func (m *memDB) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if strings.EqualFold(x.Email, u.Email) {
			return 0, repositories.ErrDuplicateKey
		}
	}
	u.ID = m.id()
	cp := *u
	m.users = append(m.users, &cp)
	return u.ID, nil
}

func (m *memDB) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if strings.EqualFold(x.Email, strings.TrimSpace(email)) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memDB) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.ID == id {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memDB) FindFirstAdmin(ctx context.Context) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.IsActive && (x.Role == models.RoleAdmin || x.Role == models.RoleOwner) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memDB) GetUsers(ctx context.Context, f models.UserFilters) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, x := range m.users {
		out = append(out, *x)
	}
	return out, len(out), nil
}

func (m *memDB) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.users {
		if x.ID == u.ID {
			cp := *u
			m.users[i] = &cp
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memDB) DeactivateUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.ID == id {
			x.IsActive = false
			return nil
		}
	}
	return repositories.ErrNotFound
}

// fixture wires the services over one memDB.
type fixture struct {
	db          *memDB
	clock       *testClock
	tx          *memTx
	cal         Calendar
	memberships MembershipService
	attendance  AttendanceService
	clients     ClientService
	users       UserService
}

func newFixture(start time.Time) *fixture {
	db := newMemDB()
	clock := newTestClock(start)
	tx := &memTx{db: db}
	cal := NewCalendar(start.Location(), clock.Now)
	ms := NewMembershipService(db, db, db, tx, cal)
	us := NewUserService(db)
	return &fixture{
		db:          db,
		clock:       clock,
		tx:          tx,
		cal:         cal,
		memberships: ms,
		attendance:  NewAttendanceService(db, db, ms, us, cal),
		clients:     NewClientService(db, db, db, cal),
		users:       us,
	}
}

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}
