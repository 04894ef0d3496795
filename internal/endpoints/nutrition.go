package endpoints

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"fuelcoach-go/internal/apiclient"
	"fuelcoach-go/internal/upload"
)

// Macros are the nutrition values shared by analysis results and entries.
type Macros struct {
	Name         string  `json:"name"`
	PortionGrams float64 `json:"portion_grams"`
	Calories     float64 `json:"calories"`
	ProteinG     float64 `json:"protein_g"`
	FatG         float64 `json:"fat_g"`
	CarbsG       float64 `json:"carbs_g"`
}

type NutritionAnalysis struct {
	Macros
	ID                *int   `json:"id,omitempty"`
	ExtendedNutrients Object `json:"extended_nutrients,omitempty"`
}

type NutritionEntryCreate struct {
	Macros
	MealType string `json:"meal_type,omitempty"`
	Date     string `json:"date,omitempty"`
}

// NutritionEntryUpdate is a partial update; nil fields are left unchanged.
type NutritionEntryUpdate struct {
	Name         *string  `json:"name,omitempty"`
	PortionGrams *float64 `json:"portion_grams,omitempty"`
	Calories     *float64 `json:"calories,omitempty"`
	ProteinG     *float64 `json:"protein_g,omitempty"`
	FatG         *float64 `json:"fat_g,omitempty"`
	CarbsG       *float64 `json:"carbs_g,omitempty"`
	MealType     *string  `json:"meal_type,omitempty"`
}

type NutritionEntry struct {
	Macros
	ID                int    `json:"id"`
	MealType          string `json:"meal_type"`
	Timestamp         string `json:"timestamp"`
	ExtendedNutrients Object `json:"extended_nutrients,omitempty"`
	CanReanalyze      bool   `json:"can_reanalyze"`
}

type NutritionTotals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

type NutritionDay struct {
	Date    string           `json:"date"`
	Entries []NutritionEntry `json:"entries"`
	Totals  NutritionTotals  `json:"totals"`
}

// AnalyzeNutrition sends a plate photo for macro estimation.
func (a *API) AnalyzeNutrition(ctx context.Context, photo upload.Reference, mealType string) (*NutritionAnalysis, error) {
	fields := map[string]string{}
	if mealType != "" {
		fields["meal_type"] = mealType
	}
	return doUpload[NutritionAnalysis](ctx, a.c, apiclient.UploadRequest{
		Path:   "/nutrition/analyze",
		File:   photo,
		Fields: fields,
	})
}

func (a *API) CreateNutritionEntry(ctx context.Context, entry NutritionEntryCreate) (*NutritionEntry, error) {
	return send[NutritionEntry](ctx, a.c, http.MethodPost, "/nutrition/entries", entry)
}

// NutritionDay lists a day's entries. A zero day means today.
func (a *API) NutritionDay(ctx context.Context, day time.Time) (*NutritionDay, error) {
	var q url.Values
	if !day.IsZero() {
		q = url.Values{"date": {Date(day)}}
	}
	return get[NutritionDay](ctx, a.c, "/nutrition/day", q)
}

func (a *API) UpdateNutritionEntry(ctx context.Context, id int, patch NutritionEntryUpdate) (*NutritionEntry, error) {
	return send[NutritionEntry](ctx, a.c, http.MethodPatch, "/nutrition/entries/"+itoa(id), patch)
}

func (a *API) DeleteNutritionEntry(ctx context.Context, id int) error {
	_, err := raw(ctx, a.c, http.MethodDelete, "/nutrition/entries/"+itoa(id), nil)
	return err
}
