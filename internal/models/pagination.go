package models

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PaginationParams describes a requested page. Out-of-range values fall back to defaults.
type PaginationParams struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit into range.
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

// Offset returns the row offset of the normalised page.
func (p PaginationParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Pagination is the metadata returned with paginated listings.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// NewPagination derives page metadata from normalised params and the total row count.
func NewPagination(params PaginationParams, total int) Pagination {
	params = params.Normalize()
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	return Pagination{
		Page:        params.Page,
		Limit:       params.Limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     params.Page < totalPages,
		HasPrevious: params.Page > 1,
	}
}

// PeriodPage is a single page of periods with its metadata.
type PeriodPage struct {
	Data       []Period   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// PeriodStatistics summarises a student's periods. It is derived, never stored.
type PeriodStatistics struct {
	Total           int64            `json:"total"`
	Active          int64            `json:"active"`
	Current         int64            `json:"current"`
	Upcoming        int64            `json:"upcoming"`
	Finished        int64            `json:"finished"`
	ByType          map[string]int64 `json:"byType"`
	AverageDuration float64          `json:"averageDuration"`
}
