package repository

import "gorm.io/gorm"

// applyPagination 给列表查询加 LIMIT/OFFSET, 非法页码按第一页处理;
// pageSize 不大于 0 时视为不分页, 原样返回
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
