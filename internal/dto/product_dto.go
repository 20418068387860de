package dto

import (
	"github.com/rjnat/cursorpos/internal/model"
)

// ProductFilter is bound from the query string of GET /v1/products.
type ProductFilter struct {
	Search string `form:"search"`
	Page   int    `form:"page,default=0" validate:"min=0"`
	Size   int    `form:"size,default=50" validate:"min=1,max=200"`
}

// ProductPage is a page of products from the remote catalog endpoint. The
// element shape matches CachedProduct so pages can be upserted into the local
// cache directly.
type ProductPage struct {
	Content       []model.CachedProduct `json:"content"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`
	TotalElements int64                 `json:"totalElements"`
	TotalPages    int                   `json:"totalPages"`
	Last          bool                  `json:"last"`
}

// ProductListResponse is returned by the local search endpoint; Source tells
// the UI whether results came from the live catalog or the offline cache.
type ProductListResponse struct {
	Products []model.CachedProduct `json:"products"`
	Source   string                `json:"source"` // remote | cache
	Total    int64                 `json:"total"`
}

// ApprovalResponse is the remote approval-request record.
type ApprovalResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // PENDING | APPROVED | REJECTED
	CreatedAt string `json:"createdAt"`
}
