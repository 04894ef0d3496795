package endpoints

import (
	"context"
	"net/http"

	"fuelcoach-go/internal/apiclient"
	"fuelcoach-go/internal/upload"
)

type Workout struct {
	ID          int      `json:"id"`
	StartDate   string   `json:"start_date"`
	Name        *string  `json:"name"`
	Type        *string  `json:"type"`
	DurationSec *int     `json:"duration_sec"`
	DistanceM   *float64 `json:"distance_m"`
	TSS         *float64 `json:"tss"`
	Source      string   `json:"source"`
	Notes       *string  `json:"notes"`
}

// WorkoutInput creates or partially updates a workout. StartDate is RFC 3339
// and required on create.
type WorkoutInput struct {
	StartDate   string   `json:"start_date,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Type        *string  `json:"type,omitempty"`
	DurationSec *int     `json:"duration_sec,omitempty"`
	DistanceM   *float64 `json:"distance_m,omitempty"`
	TSS         *float64 `json:"tss,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (a *API) Workouts(ctx context.Context, r DateRange, p Page) (*Paginated[Workout], error) {
	return get[Paginated[Workout]](ctx, a.c, "/workouts", p.apply(r.values()))
}

func (a *API) CreateWorkout(ctx context.Context, in WorkoutInput) (*Workout, error) {
	return send[Workout](ctx, a.c, http.MethodPost, "/workouts", in)
}

func (a *API) UpdateWorkout(ctx context.Context, id int, in WorkoutInput) (*Workout, error) {
	return send[Workout](ctx, a.c, http.MethodPatch, "/workouts/"+itoa(id), in)
}

func (a *API) DeleteWorkout(ctx context.Context, id int) error {
	_, err := raw(ctx, a.c, http.MethodDelete, "/workouts/"+itoa(id), nil)
	return err
}

// Fitness returns CTL/ATL/TSB derived from workouts.
func (a *API) Fitness(ctx context.Context) (*Object, error) {
	return get[Object](ctx, a.c, "/workouts/fitness", nil)
}

// PreviewFIT parses a FIT file without importing it.
func (a *API) PreviewFIT(ctx context.Context, file upload.Reference) (*Object, error) {
	return doUpload[Object](ctx, a.c, apiclient.UploadRequest{Path: "/workouts/preview-fit", File: file})
}

// UploadFIT imports a FIT file. Importing the same file twice fails with a
// conflict error carrying the server's message.
func (a *API) UploadFIT(ctx context.Context, file upload.Reference) (*Object, error) {
	return doUpload[Object](ctx, a.c, apiclient.UploadRequest{Path: "/workouts/upload-fit", File: file})
}
