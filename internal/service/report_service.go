package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/slot-booking/internal/models"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
	"github.com/noah-isme/slot-booking/pkg/export"
)

// Report formats.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

var reservationHeaders = []string{"provider", "slot", "state", "owner"}

type reservationSource interface {
	Snapshot() []models.Reservation
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// Report is a rendered inventory export.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService renders inventory snapshots.
type ReportService struct {
	source    reservationSource
	renderers map[string]datasetRenderer
	now       func() time.Time
}

// NewReportService constructs a ReportService with CSV and PDF renderers.
func NewReportService(source reservationSource) *ReportService {
	return &ReportService{
		source: source,
		renderers: map[string]datasetRenderer{
			ReportFormatCSV: export.NewCSVExporter(),
			ReportFormatPDF: export.NewPDFExporter("slot-booking"),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Reservations renders every slot record, optionally filtered by state name
// (AVAILABLE, BASKETED or RESERVED).
func (s *ReportService) Reservations(format, state string) (*Report, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ReportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	state = strings.ToUpper(strings.TrimSpace(state))
	if state != "" && !knownState(state) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown slot state %q", state))
	}

	generatedAt := s.now()
	data := export.Dataset{
		Title:   fmt.Sprintf("Reservations %s", generatedAt.Format(time.RFC3339)),
		Headers: reservationHeaders,
	}
	for _, r := range s.source.Snapshot() {
		if state != "" && r.State.String() != state {
			continue
		}
		owner := ""
		if r.State != models.SlotAvailable {
			owner = strconv.FormatInt(r.Owner, 10)
		}
		data.Rows = append(data.Rows, map[string]string{
			"provider": r.Appointment.Provider.Name,
			"slot":     r.Appointment.Slot.String(),
			"state":    r.State.String(),
			"owner":    owner,
		})
	}

	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render report")
	}
	return &Report{
		Filename:    fmt.Sprintf("reservations-%s.%s", generatedAt.Format("20060102-150405"), format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func knownState(state string) bool {
	for _, s := range []models.SlotState{models.SlotAvailable, models.SlotBasketed, models.SlotReserved} {
		if s.String() == state {
			return true
		}
	}
	return false
}
