package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"club-manager/backend/internal/model"
	pkgerrors "club-manager/backend/pkg/errors"
)

// SessionRecordRow 带人数统计的考勤记录
type SessionRecordRow struct {
	model.TrainingSessionRecord
	StudentsCount   int64 `gorm:"column:students_count"   json:"students_count"`
	AttendanceCount int64 `gorm:"column:attendance_count" json:"attendance_count"`
}

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	// CreateRecord 在一个事务中写入训练课记录与全部个人考勤
	CreateRecord(ctx context.Context, record *model.TrainingSessionRecord, entries []model.IndividualAttendanceRecord) error
	// GetRecord 预加载训练班与个人考勤（含用户）
	GetRecord(ctx context.Context, id string) (*model.TrainingSessionRecord, error)
	// UpdateAttendance 在一个事务中按用户更新出勤状态
	UpdateAttendance(ctx context.Context, recordID string, attended map[string]bool) error
	ListRecords(ctx context.Context, offset, limit int) ([]SessionRecordRow, int64, error)
	// RecordIDsOn 指定日期已记录的训练班 → 记录 ID
	RecordIDsOn(ctx context.Context, divisionIDs []string, date time.Time) (map[string]string, error)
	// UserHistory 用户在训练班 since 之后（含）的考勤，按日期倒序
	UserHistory(ctx context.Context, userID, divisionID string, since time.Time) ([]model.IndividualAttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) CreateRecord(ctx context.Context, record *model.TrainingSessionRecord, entries []model.IndividualAttendanceRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Division", "IndividualRecords").Create(record).Error; err != nil {
			return pkgerrors.TranslatePG(err)
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			entries[i].RecordID = record.RecordID
		}
		if err := tx.Omit("User", "Record").Create(&entries).Error; err != nil {
			return pkgerrors.TranslatePG(err)
		}
		record.IndividualRecords = entries
		return nil
	})
}

func (r *attendanceRepo) GetRecord(ctx context.Context, id string) (*model.TrainingSessionRecord, error) {
	var record model.TrainingSessionRecord
	err := r.db.WithContext(ctx).
		Preload("Division").
		Preload("Division.Category").
		Preload("IndividualRecords").
		Preload("IndividualRecords.User").
		Where("record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) UpdateAttendance(ctx context.Context, recordID string, attended map[string]bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, present := range attended {
			result := tx.Model(&model.IndividualAttendanceRecord{}).
				Where("record_id = ? AND user_id = ?", recordID, userID).
				Update("attended", present)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Model(&model.TrainingSessionRecord{}).
			Where("record_id = ?", recordID).
			Update("updated_at", gorm.Expr("NOW()")).Error
	})
}

func (r *attendanceRepo) ListRecords(ctx context.Context, offset, limit int) ([]SessionRecordRow, int64, error) {
	var rows []SessionRecordRow
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.TrainingSessionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).Model(&model.TrainingSessionRecord{}).
		Select(`training_session_records.*,
			(SELECT COUNT(*) FROM individual_attendance_records a WHERE a.record_id = training_session_records.record_id) AS students_count,
			(SELECT COUNT(*) FROM individual_attendance_records a WHERE a.record_id = training_session_records.record_id AND a.attended) AS attendance_count`).
		Preload("Division").
		Preload("Division.Category").
		Order("date DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *attendanceRepo) RecordIDsOn(ctx context.Context, divisionIDs []string, date time.Time) (map[string]string, error) {
	ids := make(map[string]string, len(divisionIDs))
	if len(divisionIDs) == 0 {
		return ids, nil
	}
	var records []model.TrainingSessionRecord
	err := r.db.WithContext(ctx).
		Select("record_id, division_id").
		Where("division_id IN ? AND date = ?", divisionIDs, date).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.DivisionID != nil {
			ids[*rec.DivisionID] = rec.RecordID
		}
	}
	return ids, nil
}

func (r *attendanceRepo) UserHistory(ctx context.Context, userID, divisionID string, since time.Time) ([]model.IndividualAttendanceRecord, error) {
	var list []model.IndividualAttendanceRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN training_session_records t ON t.record_id = individual_attendance_records.record_id").
		Where("individual_attendance_records.user_id = ? AND t.division_id = ? AND t.date >= ?", userID, divisionID, since).
		Preload("Record").
		Order("t.date DESC").
		Find(&list).Error
	return list, err
}
