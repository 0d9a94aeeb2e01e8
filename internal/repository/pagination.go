package repository

import "gorm.io/gorm"

// 单页上限，防止一次拉取整张流水表
const maxPageSize = 100

// applyPagination 应用分页参数，页码从 1 开始，超出上限的 page_size 会被截断。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
