package model

// ── 报表聚合行（查询结果，非表结构） ──

// ReservationSummaryRow 报表汇总
type ReservationSummaryRow struct {
	ReservationsCount int64   `json:"reservations_count"`
	UsersCount        int64   `json:"users_count"`
	TotalPaid         float64 `json:"total_paid"`
}

// ReservationGroupRow 按维度分组的报表行
type ReservationGroupRow struct {
	Name              string  `json:"name"`
	ReservationsCount int64   `json:"reservations_count"`
	IncomeGenerated   float64 `json:"income_generated"`
}

// ReservationCustomerRow 消费排行
type ReservationCustomerRow struct {
	FullName          string  `json:"full_name"`
	Phone             string  `json:"phone"`
	Gender            string  `json:"gender"`
	ReservationsCount int64   `json:"reservations_count"`
	TotalPaid         float64 `json:"total_paid"`
}

// ReservationGenderRow 按性别汇总
type ReservationGenderRow struct {
	Gender            string  `json:"gender"`
	ReservationsCount int64   `json:"reservations_count"`
	CustomersCount    int64   `json:"customers_count"`
	IncomeGenerated   float64 `json:"income_generated"`
}

// ReservationReport 日期区间内的预约报表
type ReservationReport struct {
	Summary    ReservationSummaryRow    `json:"summary"`
	Facilities []ReservationGroupRow    `json:"facilities"`
	Categories []ReservationGroupRow    `json:"categories"`
	Customers  []ReservationCustomerRow `json:"customers"`
	Genders    []ReservationGenderRow   `json:"genders"`
}

// SubscriptionNewPeriodsRow 区间内新开周期汇总
type SubscriptionNewPeriodsRow struct {
	NewSubsCount    int64   `json:"new_subs_count"`
	TotalPrices     float64 `json:"total_prices"`
	TotalPaidAmount float64 `json:"total_paid_amount"`
}

// SubscriptionDivisionRow 训练班维度
type SubscriptionDivisionRow struct {
	DivisionID         string  `json:"division_id"`
	Name               string  `json:"name"`
	CategoryName       string  `json:"category_name"`
	SubscriptionsCount int64   `json:"subscriptions_count"`
	NumberOfSessions   int64   `json:"number_of_sessions"`
	IncomeGenerated    float64 `json:"income_generated"`
}

// TrainingSessionsRow 考勤汇总
type TrainingSessionsRow struct {
	AttendedCount int64 `json:"attended_count"`
	AbsentCount   int64 `json:"absent_count"`
	SessionsCount int64 `json:"sessions_count"`
}

// SubscriptionReport 订阅报表
type SubscriptionReport struct {
	NewSubs          SubscriptionNewPeriodsRow `json:"new_subs"`
	Divisions        []SubscriptionDivisionRow `json:"divisions"`
	TrainingSessions TrainingSessionsRow       `json:"training_sessions"`
}
