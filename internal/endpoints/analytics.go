package endpoints

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Chart names accepted by the analytics routes.
const (
	ChartOverview  = "overview"
	ChartSleep     = "sleep"
	ChartWorkouts  = "workouts"
	ChartNutrition = "nutrition"
)

type InsightRequest struct {
	ChartType string `json:"chart_type"`
	Question  string `json:"question,omitempty"`
	Data      Object `json:"data"`
}

// Analytics returns chart data for the last days days. days <= 0 uses the
// server default.
func (a *API) Analytics(ctx context.Context, chart string, days int) (*Object, error) {
	var q url.Values
	if days > 0 {
		q = url.Values{"days": {strconv.Itoa(days)}}
	}
	return get[Object](ctx, a.c, "/analytics/"+chart, q)
}

// AnalyticsInsight asks for a written explanation of a chart.
func (a *API) AnalyticsInsight(ctx context.Context, req InsightRequest) (string, error) {
	out, err := send[map[string]string](ctx, a.c, http.MethodPost, "/analytics/insight", req)
	if err != nil || out == nil {
		return "", err
	}
	return (*out)["insight"], nil
}
