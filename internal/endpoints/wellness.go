package endpoints

import (
	"context"
	"net/http"
)

type WellnessDay struct {
	Date       string   `json:"date"`
	SleepHours *float64 `json:"sleep_hours"`
	RHR        *float64 `json:"rhr"`
	HRV        *float64 `json:"hrv"`
	CTL        *float64 `json:"ctl"`
	ATL        *float64 `json:"atl"`
	TSB        *float64 `json:"tsb"`
	WeightKG   *float64 `json:"weight_kg"`
}

// WellnessUpsert writes one day; nil fields are left as stored.
type WellnessUpsert struct {
	Date       string   `json:"date"`
	SleepHours *float64 `json:"sleep_hours,omitempty"`
	RHR        *float64 `json:"rhr,omitempty"`
	HRV        *float64 `json:"hrv,omitempty"`
	WeightKG   *float64 `json:"weight_kg,omitempty"`
}

func (a *API) Wellness(ctx context.Context, r DateRange) ([]WellnessDay, error) {
	out, err := get[[]WellnessDay](ctx, a.c, "/wellness", r.values())
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

func (a *API) UpsertWellness(ctx context.Context, day WellnessUpsert) (*WellnessDay, error) {
	return send[WellnessDay](ctx, a.c, http.MethodPut, "/wellness", day)
}

type AthleteProfile struct {
	WeightKG     *float64 `json:"weight_kg"`
	WeightSource *string  `json:"weight_source"`
	FTP          *int     `json:"ftp"`
	FTPSource    *string  `json:"ftp_source"`
	HeightCM     *float64 `json:"height_cm"`
	BirthYear    *int     `json:"birth_year"`
	DisplayName  string   `json:"display_name"`
	IsPremium    bool     `json:"is_premium"`
}

type AthleteProfileUpdate struct {
	WeightKG  *float64 `json:"weight_kg,omitempty"`
	HeightCM  *float64 `json:"height_cm,omitempty"`
	BirthYear *int     `json:"birth_year,omitempty"`
	FTP       *int     `json:"ftp,omitempty"`
}

func (a *API) AthleteProfile(ctx context.Context) (*AthleteProfile, error) {
	return get[AthleteProfile](ctx, a.c, "/athlete-profile", nil)
}

func (a *API) UpdateAthleteProfile(ctx context.Context, patch AthleteProfileUpdate) (*AthleteProfile, error) {
	return send[AthleteProfile](ctx, a.c, http.MethodPatch, "/athlete-profile", patch)
}
