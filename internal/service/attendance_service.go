package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-manager/backend/config"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/model"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/repository"
	"club-manager/backend/pkg/dateutil"
	pkgerrors "club-manager/backend/pkg/errors"
	"club-manager/backend/pkg/metrics"
)

// ── 考勤模块业务错误 ──

var (
	ErrRecordNotFound         = errors.New("考勤记录不存在")
	ErrNotTrainingDay         = errors.New("今天不是该训练班的训练日")
	ErrSessionAlreadyRecorded = errors.New("该训练班今天已记录考勤")
	ErrUnknownStudent         = errors.New("考勤中包含不属于该训练班的学员")
)

// AttendanceService 训练考勤业务接口
type AttendanceService interface {
	// Enrollment 训练日的在册学员，用于填写考勤
	Enrollment(ctx context.Context, trainingDayID string) (*dto.EnrollmentResponse, error)
	// Create 为今天的训练课记录考勤；未列出的学员记为缺勤
	Create(ctx context.Context, pol policy.Policy, trainingDayID string, req *dto.AttendanceRequest) (*dto.SessionRecordResponse, error)
	Update(ctx context.Context, recordID string, req *dto.AttendanceRequest) (*dto.SessionRecordResponse, error)
	GetByID(ctx context.Context, recordID string) (*dto.SessionRecordResponse, error)
	List(ctx context.Context, page *dto.PaginationRequest) ([]dto.SessionRecordListItem, int64, error)
	// ExportSheet 导出单次考勤表
	ExportSheet(ctx context.Context, recordID string) (*dto.FileResult, error)
}

type attendanceService struct {
	cfg    *config.BusinessConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.BusinessConfig, repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Enrollment ──────────────────────

func (s *attendanceService) Enrollment(ctx context.Context, trainingDayID string) (*dto.EnrollmentResponse, error) {
	day, err := s.activeTrainingDay(ctx, trainingDayID)
	if err != nil {
		return nil, err
	}
	today := dateutil.Today(s.now(), s.cfg.Location())

	rows, err := s.repo.Subscription.ListByDivision(ctx, day.DivisionID)
	if err != nil {
		s.logger.Error("查询在册学员失败", zap.String("division_id", day.DivisionID), zap.Error(err))
		return nil, err
	}

	resp := &dto.EnrollmentResponse{
		TrainingDay: toTrainingDayResponse(day),
		Date:        dateutil.FormatDate(today),
		Students:    make([]dto.AttendanceEntry, 0, len(rows)),
	}
	if brief := toDivisionBrief(day.Division); brief != nil {
		resp.Division = *brief
	}
	for i := range rows {
		row := &rows[i]
		if row.User == nil {
			continue
		}
		resp.Students = append(resp.Students, dto.AttendanceEntry{
			User:          *toUserBrief(row.User),
			LatestEndDate: formatDatePtr(row.LatestEndDate),
			Expired:       row.LatestEndDate != nil && dateutil.Truncate(*row.LatestEndDate).Before(today),
		})
	}
	return resp, nil
}

// ────────────────────── Create ──────────────────────

func (s *attendanceService) Create(ctx context.Context, pol policy.Policy, trainingDayID string, req *dto.AttendanceRequest) (*dto.SessionRecordResponse, error) {
	day, err := s.activeTrainingDay(ctx, trainingDayID)
	if err != nil {
		return nil, err
	}
	today := dateutil.Today(s.now(), s.cfg.Location())
	if int(today.Weekday()) != day.Weekday {
		return nil, ErrNotTrainingDay
	}

	rows, err := s.repo.Subscription.ListByDivision(ctx, day.DivisionID)
	if err != nil {
		s.logger.Error("查询在册学员失败", zap.String("division_id", day.DivisionID), zap.Error(err))
		return nil, err
	}
	enrolled := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.UserID != nil {
			enrolled[*row.UserID] = struct{}{}
		}
	}
	for userID := range req.Attendance {
		if _, ok := enrolled[userID]; !ok {
			return nil, ErrUnknownStudent
		}
	}

	divisionID := day.DivisionID
	creator := pol.UserID()
	record := &model.TrainingSessionRecord{DivisionID: &divisionID, Date: today, CreatedBy: &creator}
	entries := make([]model.IndividualAttendanceRecord, 0, len(enrolled))
	for userID := range enrolled {
		entries = append(entries, model.IndividualAttendanceRecord{UserID: userID, Attended: req.Attendance[userID]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })

	if err := s.repo.Attendance.CreateRecord(ctx, record, entries); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrSessionAlreadyRecorded
		}
		s.logger.Error("记录考勤失败", zap.String("division_id", divisionID), zap.Error(err))
		return nil, err
	}

	metrics.AttendanceRecords.Inc()
	s.logger.Info("考勤已记录",
		zap.String("record_id", record.RecordID),
		zap.String("division_id", divisionID),
		zap.Int("students", len(entries)),
	)
	return s.GetByID(ctx, record.RecordID)
}

// ────────────────────── Update ──────────────────────

func (s *attendanceService) Update(ctx context.Context, recordID string, req *dto.AttendanceRequest) (*dto.SessionRecordResponse, error) {
	record, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]struct{}, len(record.IndividualRecords))
	for _, a := range record.IndividualRecords {
		members[a.UserID] = struct{}{}
	}
	for userID := range req.Attendance {
		if _, ok := members[userID]; !ok {
			return nil, ErrUnknownStudent
		}
	}

	if err := s.repo.Attendance.UpdateAttendance(ctx, recordID, req.Attendance); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownStudent
		}
		s.logger.Error("更新考勤失败", zap.String("record_id", recordID), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, recordID)
}

// ────────────────────── GetByID / List ──────────────────────

func (s *attendanceService) GetByID(ctx context.Context, recordID string) (*dto.SessionRecordResponse, error) {
	record, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return toSessionRecordResponse(record), nil
}

func (s *attendanceService) List(ctx context.Context, page *dto.PaginationRequest) ([]dto.SessionRecordListItem, int64, error) {
	rows, total, err := s.repo.Attendance.ListRecords(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出考勤记录失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.SessionRecordListItem, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		result = append(result, dto.SessionRecordListItem{
			ID:              row.RecordID,
			Division:        toDivisionBrief(row.Division),
			Date:            dateutil.FormatDate(row.Date),
			StudentsCount:   row.StudentsCount,
			AttendanceCount: row.AttendanceCount,
		})
	}
	return result, total, nil
}

// ────────────────────── ExportSheet ──────────────────────

func (s *attendanceService) ExportSheet(ctx context.Context, recordID string) (*dto.FileResult, error) {
	record, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	resp := toSessionRecordResponse(record)

	divisionName := ""
	if resp.Division != nil {
		divisionName = resp.Division.Name
	}

	w, err := newSheetWriter("考勤表")
	if err != nil {
		return nil, err
	}
	w.widths(6, 24, 14, 10)
	w.title(fmt.Sprintf("%s %s 考勤表", divisionName, resp.Date), 4)
	w.header("序号", "姓名", "手机号", "出勤")

	attended := 0
	for i, e := range resp.Entries {
		mark := "缺勤"
		if e.Attended {
			mark = "出勤"
			attended++
		}
		w.line(i+1, e.User.FullName, e.User.Phone, mark)
	}
	w.blank()
	w.line("", "出勤人数", attended, len(resp.Entries))

	file, err := w.finish(fmt.Sprintf("attendance_%s.xlsx", resp.Date))
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("record_id", recordID), zap.Error(err))
		return nil, err
	}
	return file, nil
}

// ── 内部辅助方法 ──

func (s *attendanceService) activeTrainingDay(ctx context.Context, id string) (*model.TrainingWeekDay, error) {
	day, err := s.repo.Division.GetTrainingDay(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrainingDayNotFound
		}
		s.logger.Error("查询训练时间失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if day.Division == nil {
		return nil, ErrDivisionNotFound
	}
	if day.Division.Suspended {
		return nil, ErrDivisionSuspended
	}
	return day, nil
}

func (s *attendanceService) getRecord(ctx context.Context, id string) (*model.TrainingSessionRecord, error) {
	record, err := s.repo.Attendance.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error("查询考勤记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return record, nil
}

func toSessionRecordResponse(r *model.TrainingSessionRecord) *dto.SessionRecordResponse {
	resp := &dto.SessionRecordResponse{
		ID:       r.RecordID,
		Division: toDivisionBrief(r.Division),
		Date:     dateutil.FormatDate(r.Date),
		Entries:  make([]dto.AttendanceEntry, 0, len(r.IndividualRecords)),
	}
	for i := range r.IndividualRecords {
		a := &r.IndividualRecords[i]
		entry := dto.AttendanceEntry{Attended: a.Attended}
		if a.User != nil {
			entry.User = *toUserBrief(a.User)
		} else {
			entry.User = dto.UserBrief{ID: a.UserID}
		}
		resp.Entries = append(resp.Entries, entry)
	}
	sort.SliceStable(resp.Entries, func(i, j int) bool {
		return resp.Entries[i].User.FullName < resp.Entries[j].User.FullName
	})
	return resp
}
