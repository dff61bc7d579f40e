package models

import (
	"net/http"
	"strconv"

	"gorm.io/gorm"
)

// pagination support for the Mastodon API.

// PaginateRelationship applies the limit, max_id, since_id and min_id query
// parameters of r to a query over relationships, keyed on column.
func PaginateRelationship(r *http.Request, column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		q := r.URL.Query()

		limit, _ := strconv.Atoi(q.Get("limit"))
		switch {
		case limit > 80:
			limit = 80
		case limit <= 0:
			limit = 40
		}
		db = db.Limit(limit)

		sinceID, _ := strconv.ParseUint(q.Get("since_id"), 10, 64)
		if sinceID > 0 {
			db = db.Where(column+" > ?", sinceID)
		}
		maxID, _ := strconv.ParseUint(q.Get("max_id"), 10, 64)
		if maxID > 0 {
			db = db.Where(column+" < ?", maxID)
		}
		minID, _ := strconv.ParseUint(q.Get("min_id"), 10, 64)
		if minID > 0 {
			// min_id returns the page immediately after min_id, so sort ascending
			// and let the caller reverse the results.
			return db.Where(column+" > ?", minID).Order(column + " asc")
		}
		return db.Order(column + " desc")
	}
}
