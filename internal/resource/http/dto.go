package http

import (
	"time"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource"
)

type ResourceResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	AssetTag         string    `json:"asset_tag"`
	Location         string    `json:"location"`
	ApprovalRequired bool      `json:"approval_required"`
	TrainingRequired bool      `json:"training_required"`
	Bookable         bool      `json:"bookable"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:               r.ID,
		Name:             r.Name,
		AssetTag:         r.AssetTag,
		Location:         r.Location,
		ApprovalRequired: r.ApprovalRequired,
		TrainingRequired: r.TrainingRequired,
		Bookable:         r.Bookable,
		CreatedAt:        r.CreatedAt,
	}
}

type ListResourcesRequest struct {
	Location     string `form:"location"`
	BookableOnly bool   `form:"bookable"`
	Search       string `form:"q" binding:"max=100"`
}
