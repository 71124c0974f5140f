package api

import (
	"time"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
)

const dateLayout = "2006-01-02"

// pagination is the envelope metadata attached to every list response.
type pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

type listResponse struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type stationDTO struct {
	StationID string    `json:"station_id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Elevation *float64  `json:"elevation"`
	State     string    `json:"state"`
	Country   string    `json:"country"`
	Timezone  string    `json:"timezone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type factDTO struct {
	StationID       string `json:"station_id"`
	ObservationDate string `json:"observation_date"`
	Source          string `json:"source"`

	MaxTempC *float64 `json:"max_temp_c"`
	MinTempC *float64 `json:"min_temp_c"`
	PrecipMM *float64 `json:"precip_mm"`
	PrecipCM *float64 `json:"precip_cm"`

	DataQuality   string  `json:"data_quality"`
	QualityScore  float64 `json:"quality_score"`
	MissingValues int     `json:"missing_values"`
	OutlierCount  int     `json:"outlier_count"`
	QualityNotes  string  `json:"quality_notes,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
}

type summaryDTO struct {
	StationID   string `json:"station_id"`
	Granularity string `json:"granularity"`
	PeriodStart string `json:"period_start"`
	Year        int    `json:"year"`
	Month       int    `json:"month,omitempty"`
	Quarter     int    `json:"quarter,omitempty"`

	AvgMaxTempC     *float64 `json:"avg_max_temp_c"`
	AvgMinTempC     *float64 `json:"avg_min_temp_c"`
	TotalPrecipMM   *float64 `json:"total_precip_mm"`
	RecordCount     int      `json:"record_count"`
	AvgQualityScore float64  `json:"avg_quality_score"`

	ComputedAt time.Time `json:"computed_at"`
}

func toStationDTO(st domain.Station) stationDTO {
	return stationDTO{
		StationID: st.StationID,
		Name:      st.Name,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Elevation: st.Elevation,
		State:     st.State,
		Country:   st.Country,
		Timezone:  st.Timezone,
		Active:    st.Active,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func toFactDTO(f domain.WeatherFact) factDTO {
	return factDTO{
		StationID:       f.StationID,
		ObservationDate: f.ObservationDate.Format(dateLayout),
		Source:          f.Source,
		MaxTempC:        f.MaxTempC,
		MinTempC:        f.MinTempC,
		PrecipMM:        f.PrecipMM,
		PrecipCM:        f.PrecipCM,
		DataQuality:     string(f.DataQuality),
		QualityScore:    f.QualityScore,
		MissingValues:   f.MissingValues,
		OutlierCount:    f.OutlierCount,
		QualityNotes:    f.QualityNotes,
		IngestedAt:      f.IngestedAt,
	}
}

func toSummaryDTO(s domain.Summary) summaryDTO {
	return summaryDTO{
		StationID:       s.StationID,
		Granularity:     string(s.Granularity),
		PeriodStart:     s.PeriodStart.Format(dateLayout),
		Year:            s.Year,
		Month:           s.Month,
		Quarter:         s.Quarter,
		AvgMaxTempC:     s.AvgMaxTempC,
		AvgMinTempC:     s.AvgMinTempC,
		TotalPrecipMM:   s.TotalPrecipMM,
		RecordCount:     s.RecordCount,
		AvgQualityScore: s.AvgQualityScore,
		ComputedAt:      s.ComputedAt,
	}
}

func newPagination(page, perPage, total int) pagination {
	pages := 0
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1 && total > 0,
	}
}
