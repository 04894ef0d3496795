package endpoints

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"fuelcoach-go/internal/apiclient"
	"fuelcoach-go/internal/upload"
)

type SleepExtraction struct {
	ID            int    `json:"id"`
	ExtractedData Object `json:"extracted_data"`
	CreatedAt     string `json:"created_at"`
}

type PhotoOptions struct {
	MealType string
	// DryRun analyzes without saving.
	DryRun bool
}

// AnalyzePhoto classifies a photo and saves the food entry or sleep data unless DryRun.
func (a *API) AnalyzePhoto(ctx context.Context, photo upload.Reference, opts PhotoOptions) (*Object, error) {
	fields := map[string]string{}
	if opts.MealType != "" {
		fields["meal_type"] = opts.MealType
	}
	var q url.Values
	if opts.DryRun {
		q = url.Values{"save": {strconv.FormatBool(false)}}
	}
	return doUpload[Object](ctx, a.c, apiclient.UploadRequest{
		Path:   "/photo/analyze",
		File:   photo,
		Fields: fields,
		Query:  q,
	})
}

// AnalyzeSleepPhoto extracts sleep data from a tracker screenshot. mode is
// "lite" or "full"; empty uses the server default.
func (a *API) AnalyzeSleepPhoto(ctx context.Context, photo upload.Reference, mode string) (*SleepExtraction, error) {
	var q url.Values
	if mode != "" {
		q = url.Values{"mode": {mode}}
	}
	return doUpload[SleepExtraction](ctx, a.c, apiclient.UploadRequest{
		Path:  "/photo/analyze-sleep",
		File:  photo,
		Query: q,
	})
}

// SaveSleep stores sleep data previously returned by a dry-run analysis.
func (a *API) SaveSleep(ctx context.Context, extracted Object) (*SleepExtraction, error) {
	return send[SleepExtraction](ctx, a.c, http.MethodPost, "/photo/save-sleep", extracted)
}

func (a *API) ReanalyzeSleepExtraction(ctx context.Context, id int, correction string) (*SleepExtraction, error) {
	return send[SleepExtraction](ctx, a.c, http.MethodPost,
		"/photo/sleep-extractions/"+itoa(id)+"/reanalyze", map[string]string{"correction": correction})
}

func (a *API) SleepExtractions(ctx context.Context, r DateRange, limit int) ([]SleepExtraction, error) {
	q := Page{Limit: limit}.apply(r.values())
	out, err := get[[]SleepExtraction](ctx, a.c, "/photo/sleep-extractions", q)
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}
