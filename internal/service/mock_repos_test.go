package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"club-manager/backend/internal/billing"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/repository"
	pkgerrors "club-manager/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Phone == user.Phone {
			return pkgerrors.ErrDuplicate
		}
	}
	if user.UserID == "" {
		user.UserID = "user-" + user.Phone
	}
	if user.Version == 0 {
		user.Version = 1
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	for _, u := range m.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.Version++
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if u, ok := m.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) ListStaff(_ context.Context) ([]model.User, error) {
	return m.filter(func(u *model.User) bool { return u.IsStaff || u.IsSuperuser }), nil
}

func (m *mockUserRepo) ListCustomers(_ context.Context, query string, offset, limit int) ([]model.User, int64, error) {
	list := m.filter(func(u *model.User) bool {
		if !u.IsCustomer() {
			return false
		}
		return query == "" || strings.Contains(u.Phone, query) || strings.Contains(u.FullName, query)
	})
	total := int64(len(list))
	if offset >= len(list) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (m *mockUserRepo) ListUnconfirmed(_ context.Context) ([]model.User, error) {
	return m.filter(func(u *model.User) bool { return !u.Confirmed && !u.IsStaff && !u.IsSuperuser }), nil
}

func (m *mockUserRepo) CountUnconfirmed(ctx context.Context) (int64, error) {
	list, _ := m.ListUnconfirmed(ctx)
	return int64(len(list)), nil
}

func (m *mockUserRepo) filter(keep func(u *model.User) bool) []model.User {
	var result []model.User
	for _, u := range m.users {
		if keep(u) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Phone < result[j].Phone })
	return result
}

// ── Mock OrganizationRepository ──

type mockOrganizationRepo struct {
	org *model.Organization
}

func (m *mockOrganizationRepo) Get(_ context.Context) (*model.Organization, error) {
	if m.org == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.org, nil
}

func (m *mockOrganizationRepo) Save(_ context.Context, org *model.Organization) error {
	org.Singleton = true
	m.org = org
	return nil
}

// ── Mock FacilityRepository ──

type mockFacilityRepo struct {
	categories map[string]*model.FacilityCategory
	facilities map[string]*model.Facility
	slots      map[string]*model.TimeSlot
}

func newMockFacilityRepo() *mockFacilityRepo {
	return &mockFacilityRepo{
		categories: make(map[string]*model.FacilityCategory),
		facilities: make(map[string]*model.Facility),
		slots:      make(map[string]*model.TimeSlot),
	}
}

func (m *mockFacilityRepo) CreateCategory(_ context.Context, category *model.FacilityCategory) error {
	if category.CategoryID == "" {
		category.CategoryID = "fcat-" + category.Name
	}
	m.categories[category.CategoryID] = category
	return nil
}

func (m *mockFacilityRepo) ListCategories(_ context.Context) ([]model.FacilityCategory, error) {
	var result []model.FacilityCategory
	for _, c := range m.categories {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockFacilityRepo) GetCategory(_ context.Context, id string) (*model.FacilityCategory, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFacilityRepo) Create(_ context.Context, facility *model.Facility) error {
	if facility.FacilityID == "" {
		facility.FacilityID = "fac-" + facility.Name
	}
	if facility.Version == 0 {
		facility.Version = 1
	}
	m.facilities[facility.FacilityID] = facility
	return nil
}

func (m *mockFacilityRepo) GetByID(ctx context.Context, id string) (*model.Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *f
	out.TimeSlots, _ = m.ListSlots(ctx, id)
	if out.CategoryID != nil {
		out.Category = m.categories[*out.CategoryID]
	}
	return &out, nil
}

func (m *mockFacilityRepo) List(ctx context.Context, includeSuspended bool) ([]model.Facility, error) {
	var result []model.Facility
	for id, f := range m.facilities {
		if f.Suspended && !includeSuspended {
			continue
		}
		full, _ := m.GetByID(ctx, id)
		result = append(result, *full)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockFacilityRepo) Update(_ context.Context, facility *model.Facility) error {
	current, ok := m.facilities[facility.FacilityID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Version != facility.Version {
		return pkgerrors.ErrOptimisticLock
	}
	facility.Version++
	stored := *facility
	stored.TimeSlots = nil
	m.facilities[facility.FacilityID] = &stored
	return nil
}

func (m *mockFacilityRepo) ListSlots(_ context.Context, facilityID string) ([]model.TimeSlot, error) {
	var result []model.TimeSlot
	for _, s := range m.slots {
		if s.FacilityID == facilityID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

func (m *mockFacilityRepo) GetSlot(_ context.Context, id string) (*model.TimeSlot, error) {
	if s, ok := m.slots[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFacilityRepo) ReplaceSlots(_ context.Context, facilityID string, slots []model.TimeSlot) error {
	for id, s := range m.slots {
		if s.FacilityID == facilityID {
			delete(m.slots, id)
		}
	}
	for i := range slots {
		slots[i].FacilityID = facilityID
		if slots[i].TimeSlotID == "" {
			slots[i].TimeSlotID = fmt.Sprintf("slot-%s-%s", facilityID, slots[i].StartTime)
		}
		slot := slots[i]
		m.slots[slot.TimeSlotID] = &slot
	}
	return nil
}

// ── Mock ReservationRepository ──

type mockReservationRepo struct {
	reservations map[string]*model.Reservation
	seq          int64
	// createErr 非 nil 时 CreateBatch 直接返回该错误
	createErr error
}

func newMockReservationRepo() *mockReservationRepo {
	return &mockReservationRepo{reservations: make(map[string]*model.Reservation)}
}

func (m *mockReservationRepo) CreateBatch(_ context.Context, reservations []model.Reservation) error {
	if m.createErr != nil {
		return m.createErr
	}
	for i := range reservations {
		r := &reservations[i]
		if r.TimeSlotID != nil && m.taken(r.FacilityID, *r.TimeSlotID, r.Day, "") {
			return pkgerrors.ErrDuplicate
		}
	}
	for i := range reservations {
		m.seq++
		reservations[i].ReservationID = fmt.Sprintf("res-%d", m.seq)
		reservations[i].Number = m.seq
		stored := reservations[i]
		m.reservations[stored.ReservationID] = &stored
	}
	return nil
}

func (m *mockReservationRepo) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	if r, ok := m.reservations[id]; ok {
		out := *r
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReservationRepo) Move(_ context.Context, id string, day time.Time, timeSlotID string, price float64) error {
	r, ok := m.reservations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if m.taken(r.FacilityID, timeSlotID, day, id) {
		return pkgerrors.ErrDuplicate
	}
	r.Day = day
	r.TimeSlotID = &timeSlotID
	r.Price = price
	return nil
}

func (m *mockReservationRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.reservations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.reservations, id)
	return nil
}

func (m *mockReservationRepo) Search(_ context.Context, filter repository.ReservationFilter, offset, limit int) ([]model.Reservation, int64, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		if filter.FacilityID != "" && r.FacilityID != filter.FacilityID {
			continue
		}
		result = append(result, *r)
	}
	return result, int64(len(result)), nil
}

func (m *mockReservationRepo) ReservedSlotIDs(_ context.Context, facilityID string, days []time.Time, excludeID string) ([]string, error) {
	var ids []string
	for id, r := range m.reservations {
		if id == excludeID || r.FacilityID != facilityID || r.TimeSlotID == nil {
			continue
		}
		for _, d := range days {
			if r.Day.Equal(d) {
				ids = append(ids, *r.TimeSlotID)
				break
			}
		}
	}
	return ids, nil
}

func (m *mockReservationRepo) ListByDays(_ context.Context, days []time.Time) ([]model.Reservation, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		for _, d := range days {
			if r.Day.Equal(d) {
				result = append(result, *r)
				break
			}
		}
	}
	return result, nil
}

func (m *mockReservationRepo) ListByFacilityRange(_ context.Context, facilityID string, from, to time.Time) ([]model.Reservation, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		if r.FacilityID == facilityID && !r.Day.Before(from) && !r.Day.After(to) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReservationRepo) ListRange(_ context.Context, from, to time.Time) ([]model.Reservation, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		if !r.Day.Before(from) && !r.Day.After(to) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReservationRepo) Report(_ context.Context, _, _ time.Time) (*model.ReservationReport, error) {
	return &model.ReservationReport{}, nil
}

func (m *mockReservationRepo) taken(facilityID, slotID string, day time.Time, excludeID string) bool {
	for id, r := range m.reservations {
		if id == excludeID || r.FacilityID != facilityID || r.TimeSlotID == nil {
			continue
		}
		if *r.TimeSlotID == slotID && r.Day.Equal(day) {
			return true
		}
	}
	return false
}

// ── Mock DivisionRepository ──

type mockDivisionRepo struct {
	categories   map[string]*model.SportCategory
	divisions    map[string]*model.Division
	trainingDays map[string]*model.TrainingWeekDay
	counts       map[string]int64
}

func newMockDivisionRepo() *mockDivisionRepo {
	return &mockDivisionRepo{
		categories:   make(map[string]*model.SportCategory),
		divisions:    make(map[string]*model.Division),
		trainingDays: make(map[string]*model.TrainingWeekDay),
		counts:       make(map[string]int64),
	}
}

func (m *mockDivisionRepo) CreateCategory(_ context.Context, category *model.SportCategory) error {
	if category.CategoryID == "" {
		category.CategoryID = "scat-" + category.Name
	}
	m.categories[category.CategoryID] = category
	return nil
}

func (m *mockDivisionRepo) ListCategories(_ context.Context) ([]model.SportCategory, error) {
	var result []model.SportCategory
	for _, c := range m.categories {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockDivisionRepo) GetCategory(_ context.Context, id string) (*model.SportCategory, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDivisionRepo) Create(_ context.Context, division *model.Division) error {
	if division.DivisionID == "" {
		division.DivisionID = "div-" + division.Name
	}
	if division.Version == 0 {
		division.Version = 1
	}
	m.divisions[division.DivisionID] = division
	return nil
}

func (m *mockDivisionRepo) GetByID(_ context.Context, id string) (*model.Division, error) {
	d, ok := m.divisions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *d
	out.Category = m.categories[d.CategoryID]
	out.TrainingDays = nil
	for _, td := range m.trainingDays {
		if td.DivisionID == id {
			out.TrainingDays = append(out.TrainingDays, *td)
		}
	}
	sort.Slice(out.TrainingDays, func(i, j int) bool { return out.TrainingDays[i].Weekday < out.TrainingDays[j].Weekday })
	return &out, nil
}

func (m *mockDivisionRepo) List(ctx context.Context, includeSuspended bool) ([]model.Division, error) {
	var result []model.Division
	for id, d := range m.divisions {
		if d.Suspended && !includeSuspended {
			continue
		}
		full, _ := m.GetByID(ctx, id)
		result = append(result, *full)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockDivisionRepo) Update(_ context.Context, division *model.Division) error {
	current, ok := m.divisions[division.DivisionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Version != division.Version {
		return pkgerrors.ErrOptimisticLock
	}
	division.Version++
	stored := *division
	stored.Category, stored.TrainingDays = nil, nil
	m.divisions[division.DivisionID] = &stored
	return nil
}

func (m *mockDivisionRepo) CountSubscriptions(_ context.Context, divisionIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(divisionIDs))
	for _, id := range divisionIDs {
		result[id] = m.counts[id]
	}
	return result, nil
}

func (m *mockDivisionRepo) ReplaceTrainingDays(_ context.Context, divisionID string, days []model.TrainingWeekDay) error {
	for id, td := range m.trainingDays {
		if td.DivisionID == divisionID {
			delete(m.trainingDays, id)
		}
	}
	for i := range days {
		days[i].DivisionID = divisionID
		if days[i].TrainingDayID == "" {
			days[i].TrainingDayID = fmt.Sprintf("td-%s-%d", divisionID, days[i].Weekday)
		}
		day := days[i]
		m.trainingDays[day.TrainingDayID] = &day
	}
	return nil
}

func (m *mockDivisionRepo) GetTrainingDay(ctx context.Context, id string) (*model.TrainingWeekDay, error) {
	td, ok := m.trainingDays[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *td
	if d, err := m.GetByID(ctx, td.DivisionID); err == nil {
		out.Division = d
	}
	return &out, nil
}

func (m *mockDivisionRepo) ListTrainingDaysByWeekday(ctx context.Context, weekday int) ([]model.TrainingWeekDay, error) {
	var result []model.TrainingWeekDay
	for id, td := range m.trainingDays {
		if td.Weekday != weekday {
			continue
		}
		full, _ := m.GetTrainingDay(ctx, id)
		if full.Division != nil && full.Division.Suspended {
			continue
		}
		result = append(result, *full)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

// ── Mock SubscriptionRepository ──

type mockSubscriptionRepo struct {
	subs     map[string]*model.Subscription
	invoices []model.Invoice
	users    *mockUserRepo
	seq      int64
}

func newMockSubscriptionRepo(users *mockUserRepo) *mockSubscriptionRepo {
	return &mockSubscriptionRepo{subs: make(map[string]*model.Subscription), users: users}
}

func (m *mockSubscriptionRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockSubscriptionRepo) CreateWithPeriod(_ context.Context, sub *model.Subscription, period *model.SubscriptionPeriod, invoice *model.Invoice) error {
	for _, s := range m.subs {
		if *s.UserID == *sub.UserID && *s.DivisionID == *sub.DivisionID {
			return pkgerrors.ErrDuplicate
		}
	}
	sub.SubscriptionID = m.nextID("sub")
	period.SubscriptionID = sub.SubscriptionID
	period.PeriodID = m.nextID("period")
	stored := *sub
	stored.Periods = []model.SubscriptionPeriod{*period}
	m.subs[sub.SubscriptionID] = &stored
	m.addInvoice(sub.SubscriptionID, invoice)
	return nil
}

func (m *mockSubscriptionRepo) AddPeriod(_ context.Context, period *model.SubscriptionPeriod, invoice *model.Invoice) error {
	sub, ok := m.subs[period.SubscriptionID]
	if !ok {
		return pkgerrors.ErrForeignKey
	}
	period.PeriodID = m.nextID("period")
	sub.Periods = append(sub.Periods, *period)
	sort.SliceStable(sub.Periods, func(i, j int) bool { return sub.Periods[i].StartDate.Before(sub.Periods[j].StartDate) })
	m.addInvoice(period.SubscriptionID, invoice)
	return nil
}

func (m *mockSubscriptionRepo) ApplyPayment(_ context.Context, subscriptionID string, amount float64, invoice *model.Invoice) error {
	sub, ok := m.subs[subscriptionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if err := billing.CheckPayment(sub.Periods, amount); err != nil {
		return err
	}
	dueBefore := billing.TotalDue(sub.Periods)
	applied, _ := billing.Allocate(sub.Periods, amount)
	invoice.TotalPrice = dueBefore
	invoice.Paid = applied
	m.addInvoice(subscriptionID, invoice)
	return nil
}

func (m *mockSubscriptionRepo) addInvoice(subscriptionID string, invoice *model.Invoice) {
	if invoice == nil {
		return
	}
	invoice.SubscriptionID = subscriptionID
	invoice.InvoiceID = m.nextID("inv")
	invoice.Number = int64(len(m.invoices) + 1)
	m.invoices = append(m.invoices, *invoice)
}

func (m *mockSubscriptionRepo) GetByID(_ context.Context, id string) (*model.Subscription, error) {
	sub, ok := m.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *sub
	out.Periods = append([]model.SubscriptionPeriod(nil), sub.Periods...)
	if m.users != nil && sub.UserID != nil {
		out.User = m.users.users[*sub.UserID]
	}
	return &out, nil
}

func (m *mockSubscriptionRepo) ExistsForUserDivision(_ context.Context, userID, divisionID string) (bool, error) {
	for _, s := range m.subs {
		if s.UserID != nil && s.DivisionID != nil && *s.UserID == userID && *s.DivisionID == divisionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubscriptionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.subs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *mockSubscriptionRepo) Search(ctx context.Context, filter repository.SubscriptionFilter, offset, limit int) ([]repository.SubscriptionRow, int64, error) {
	var rows []repository.SubscriptionRow
	for id, s := range m.subs {
		if filter.DivisionID != "" && (s.DivisionID == nil || *s.DivisionID != filter.DivisionID) {
			continue
		}
		rows = append(rows, m.row(ctx, id))
	}
	return rows, int64(len(rows)), nil
}

func (m *mockSubscriptionRepo) ListByDivision(ctx context.Context, divisionID string) ([]repository.SubscriptionRow, error) {
	var rows []repository.SubscriptionRow
	for id, s := range m.subs {
		if s.DivisionID != nil && *s.DivisionID == divisionID {
			rows = append(rows, m.row(ctx, id))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubscriptionID < rows[j].SubscriptionID })
	return rows, nil
}

func (m *mockSubscriptionRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]repository.SubscriptionRow, error) {
	var rows []repository.SubscriptionRow
	for id := range m.subs {
		row := m.row(ctx, id)
		if row.LatestEndDate != nil && !row.LatestEndDate.Before(from) && !row.LatestEndDate.After(to) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockSubscriptionRepo) ListInvoices(_ context.Context, subscriptionID string) ([]model.Invoice, error) {
	var result []model.Invoice
	for i := len(m.invoices) - 1; i >= 0; i-- {
		if m.invoices[i].SubscriptionID == subscriptionID {
			result = append(result, m.invoices[i])
		}
	}
	return result, nil
}

func (m *mockSubscriptionRepo) GetInvoice(_ context.Context, id string) (*model.Invoice, error) {
	for i := range m.invoices {
		if m.invoices[i].InvoiceID == id {
			inv := m.invoices[i]
			return &inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubscriptionRepo) Report(_ context.Context, _, _ time.Time) (*model.SubscriptionReport, error) {
	return &model.SubscriptionReport{}, nil
}

func (m *mockSubscriptionRepo) row(ctx context.Context, id string) repository.SubscriptionRow {
	sub, _ := m.GetByID(ctx, id)
	return repository.SubscriptionRow{
		Subscription:  *sub,
		LatestEndDate: latestEndDate(sub.Periods),
		TotalDue:      billing.TotalDue(sub.Periods),
	}
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[string]*model.TrainingSessionRecord
	users   *mockUserRepo
	seq     int
}

func newMockAttendanceRepo(users *mockUserRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.TrainingSessionRecord), users: users}
}

func (m *mockAttendanceRepo) CreateRecord(_ context.Context, record *model.TrainingSessionRecord, entries []model.IndividualAttendanceRecord) error {
	for _, r := range m.records {
		if r.DivisionID != nil && record.DivisionID != nil && *r.DivisionID == *record.DivisionID && r.Date.Equal(record.Date) {
			return pkgerrors.ErrDuplicate
		}
	}
	m.seq++
	record.RecordID = fmt.Sprintf("rec-%d", m.seq)
	stored := *record
	stored.IndividualRecords = nil
	for i, e := range entries {
		e.ID = fmt.Sprintf("%s-%d", record.RecordID, i)
		e.RecordID = record.RecordID
		stored.IndividualRecords = append(stored.IndividualRecords, e)
	}
	m.records[record.RecordID] = &stored
	return nil
}

func (m *mockAttendanceRepo) GetRecord(_ context.Context, id string) (*model.TrainingSessionRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *r
	out.IndividualRecords = make([]model.IndividualAttendanceRecord, len(r.IndividualRecords))
	for i, a := range r.IndividualRecords {
		if m.users != nil {
			a.User = m.users.users[a.UserID]
		}
		out.IndividualRecords[i] = a
	}
	return &out, nil
}

func (m *mockAttendanceRepo) UpdateAttendance(_ context.Context, recordID string, attended map[string]bool) error {
	r, ok := m.records[recordID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range r.IndividualRecords {
		if v, ok := attended[r.IndividualRecords[i].UserID]; ok {
			r.IndividualRecords[i].Attended = v
		}
	}
	return nil
}

func (m *mockAttendanceRepo) ListRecords(_ context.Context, offset, limit int) ([]repository.SessionRecordRow, int64, error) {
	var rows []repository.SessionRecordRow
	for _, r := range m.records {
		row := repository.SessionRecordRow{TrainingSessionRecord: *r, StudentsCount: int64(len(r.IndividualRecords))}
		for _, a := range r.IndividualRecords {
			if a.Attended {
				row.AttendanceCount++
			}
		}
		rows = append(rows, row)
	}
	return rows, int64(len(rows)), nil
}

func (m *mockAttendanceRepo) RecordIDsOn(_ context.Context, divisionIDs []string, date time.Time) (map[string]string, error) {
	result := make(map[string]string)
	for _, r := range m.records {
		if r.DivisionID == nil || !r.Date.Equal(date) {
			continue
		}
		for _, id := range divisionIDs {
			if id == *r.DivisionID {
				result[id] = r.RecordID
			}
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) UserHistory(_ context.Context, userID, divisionID string, since time.Time) ([]model.IndividualAttendanceRecord, error) {
	var result []model.IndividualAttendanceRecord
	for _, r := range m.records {
		if r.DivisionID == nil || *r.DivisionID != divisionID || r.Date.Before(since) {
			continue
		}
		for _, a := range r.IndividualRecords {
			if a.UserID == userID {
				rec := *r
				a.Record = &rec
				result = append(result, a)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Record.Date.After(result[j].Record.Date) })
	return result, nil
}

// ── 测试仓储聚合 ──

type testRepos struct {
	user         *mockUserRepo
	organization *mockOrganizationRepo
	facility     *mockFacilityRepo
	reservation  *mockReservationRepo
	division     *mockDivisionRepo
	subscription *mockSubscriptionRepo
	attendance   *mockAttendanceRepo
}

func newTestRepos() (*testRepos, *repository.Repository) {
	users := newMockUserRepo()
	m := &testRepos{
		user:         users,
		organization: &mockOrganizationRepo{},
		facility:     newMockFacilityRepo(),
		reservation:  newMockReservationRepo(),
		division:     newMockDivisionRepo(),
		subscription: newMockSubscriptionRepo(users),
		attendance:   newMockAttendanceRepo(users),
	}
	repo := &repository.Repository{
		User:         m.user,
		Organization: m.organization,
		Facility:     m.facility,
		Reservation:  m.reservation,
		Division:     m.division,
		Subscription: m.subscription,
		Attendance:   m.attendance,
		Wizard:       repository.NewMemoryWizardStore(),
	}
	return m, repo
}

// ── 测试数据 ──

func seedCustomer(m *testRepos, phone, name string) *model.User {
	u := &model.User{
		UserID:    "cust-" + phone,
		Phone:     phone,
		FullName:  name,
		Gender:    model.GenderMale,
		IsActive:  true,
		Confirmed: true,
	}
	_ = m.user.Create(context.Background(), u)
	return u
}

func seedFacility(m *testRepos, name string, price float64, clocks ...[2]string) *model.Facility {
	f := &model.Facility{FacilityID: "fac-" + name, Name: name, DefaultPrice: price, Color: "#336699"}
	_ = m.facility.Create(context.Background(), f)
	slots := make([]model.TimeSlot, 0, len(clocks))
	for _, c := range clocks {
		slots = append(slots, model.TimeSlot{StartTime: c[0], EndTime: c[1]})
	}
	_ = m.facility.ReplaceSlots(context.Background(), f.FacilityID, slots)
	return f
}

func seedDivision(m *testRepos, name string, monthPrice float64) *model.Division {
	cat := &model.SportCategory{CategoryID: "scat-swim", Name: "游泳"}
	m.division.categories[cat.CategoryID] = cat
	d := &model.Division{DivisionID: "div-" + name, CategoryID: cat.CategoryID, Name: name, DefaultMonthPrice: monthPrice}
	_ = m.division.Create(context.Background(), d)
	return d
}
