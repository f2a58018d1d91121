package http

import (
	"embed"
	"html/template"

	fiberutils "github.com/gofiber/fiber/v2/utils"

	"github.com/cityweather/backend/internal/domain"
	"github.com/cityweather/backend/pkg/utils"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// QuickLocations are the cities linked from the side panel
var QuickLocations = []string{
	"Mombasa",
	"Nairobi",
	"Kisumu",
	"Kiribati",
	"Kakamega",
	"Bungoma",
	"Kitui",
}

type pageView struct {
	Query     string
	Locations []string
	Weather   *domain.WeatherResult
	Temp      int
	FeelsLike float64
	WindSpeed float64
	Error     *pageError
}

type pageError struct {
	Status     int
	StatusText string
	Message    string
}

func newPageView(query string, out domain.Outcome) pageView {
	view := pageView{
		Query:     query,
		Locations: QuickLocations,
	}

	if out.Err != nil {
		status := out.Status()
		view.Error = &pageError{
			Status:     status,
			StatusText: fiberutils.StatusMessage(status),
			Message:    errorMessage(out.Err),
		}
		return view
	}

	view.Weather = out.Result
	view.Temp = out.Result.RoundedTemp()
	view.FeelsLike = utils.RoundTo(out.Result.Main.FeelsLike, 1)
	view.WindSpeed = utils.RoundTo(out.Result.Wind.Speed, 1)
	return view
}
