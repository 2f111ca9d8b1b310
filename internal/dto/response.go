package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 通用简要信息 ──

// UserBrief 用户简要信息（嵌入其他响应）
type UserBrief struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
}

// NamedBrief 只含 ID 与名称的关联对象
type NamedBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DateRangeRequest 报表日期区间（含两端）
type DateRangeRequest struct {
	StartDate string `form:"start_date" binding:"required,ymd"`
	EndDate   string `form:"end_date"   binding:"required,ymd"`
}

// FileResult 导出文件
type FileResult struct {
	Filename    string
	ContentType string
	Data        []byte
}
