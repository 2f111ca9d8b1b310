package dto

// ── 考勤模块 DTO ──

// AttendanceRequest 考勤提交：用户 ID → 是否出勤
// 创建时未列出的在册学员记为缺勤
type AttendanceRequest struct {
	Attendance map[string]bool `json:"attendance" binding:"required"`
}

// AttendanceEntry 单个学员的出勤
type AttendanceEntry struct {
	User          UserBrief `json:"user"`
	Attended      bool      `json:"attended"`
	LatestEndDate *string   `json:"latest_end_date,omitempty"`
	Expired       bool      `json:"expired"`
}

// SessionRecordResponse 训练课考勤详情
type SessionRecordResponse struct {
	ID       string            `json:"id"`
	Division *NamedBrief       `json:"division,omitempty"`
	Date     string            `json:"date"`
	Entries  []AttendanceEntry `json:"entries"`
}

// SessionRecordListItem 历史考勤列表项
type SessionRecordListItem struct {
	ID              string      `json:"id"`
	Division        *NamedBrief `json:"division,omitempty"`
	Date            string      `json:"date"`
	StudentsCount   int64       `json:"students_count"`
	AttendanceCount int64       `json:"attendance_count"`
}

// EnrollmentResponse 训练日的在册学员（考勤表单）
type EnrollmentResponse struct {
	TrainingDay TrainingDayResponse `json:"training_day"`
	Division    NamedBrief          `json:"division"`
	Date        string              `json:"date"`
	Students    []AttendanceEntry   `json:"students"`
}
