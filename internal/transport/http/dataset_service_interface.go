package http

import (
	"context"

	"hpipulse/internal/dataset"
	"hpipulse/internal/services"
)

// DatasetServiceInterface defines the dataset operations the HTTP layer needs
type DatasetServiceInterface interface {
	Overview(ctx context.Context, headRows int) (*services.Overview, error)
	Refresh(ctx context.Context) (*dataset.MergeResult, error)
	Status() services.DatasetStatus
	Regions(ctx context.Context) ([]string, error)
	RegionSummary(ctx context.Context, region string) (*services.RegionSummary, error)
	Views() []services.ViewDefinition
	View(ctx context.Context, viewID, region string) (*services.ViewResult, error)
	Melt(ctx context.Context, req services.MeltRequest) (*dataset.LongTable, error)
}

var _ DatasetServiceInterface = (*services.DatasetService)(nil)
