package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/metar-snapshot/internal/metar"
	"github.com/i474232898/metar-snapshot/internal/store"
	"github.com/i474232898/metar-snapshot/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, snapshots weather.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		snapshot, err := latest(snapshots)
		if err != nil {
			return err
		}
		return c.JSON(snapshot)
	})

	v1.Get("/stations/:station/latest", func(c *fiber.Ctx) error {
		result, err := latestStation(snapshots, c.Params("station"))
		if err != nil {
			return err
		}
		return c.JSON(result)
	})

	v1.Get("/stations/:station/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		history, err := snapshots.GetRange(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		observations := make([]*metar.Observation, 0, len(history))
		for _, snap := range history {
			if r, ok := snap.Station(req.Station); ok && r.OK() {
				observations = append(observations, r.Observation)
			}
		}
		if len(observations) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no observations for requested station and range")
		}

		return c.JSON(fiber.Map{
			"station":      strings.ToUpper(req.Station),
			"from":         req.From,
			"to":           req.To,
			"observations": observations,
		})
	})

	v1.Get("/stations/:station/conditions", func(c *fiber.Ctx) error {
		var req conditionsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := latestStation(snapshots, req.Station)
		if err != nil {
			return err
		}
		if !result.OK() {
			return fiber.NewError(fiber.StatusNotFound, "latest report for station is unavailable: "+result.Error)
		}

		return c.JSON(weather.DeriveConditions(result.Observation, req.Runway))
	})
}

func latest(snapshots weather.Store) (weather.Snapshot, error) {
	snapshot, err := snapshots.GetLatest()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return weather.Snapshot{}, fiber.NewError(fiber.StatusNotFound, "no weather snapshot yet")
		}
		return weather.Snapshot{}, fiber.NewError(fiber.StatusInternalServerError, "failed to read weather snapshot")
	}
	return snapshot, nil
}

func latestStation(snapshots weather.Store, ref string) (weather.StationResult, error) {
	snapshot, err := latest(snapshots)
	if err != nil {
		return weather.StationResult{}, err
	}
	result, ok := snapshot.Station(ref)
	if !ok {
		return weather.StationResult{}, fiber.NewError(fiber.StatusNotFound, "unknown station "+ref)
	}
	return result, nil
}

// historyQuery holds the parameters of the history endpoint.
type historyQuery struct {
	Station string    `validate:"required"`
	From    time.Time `validate:"required"`
	To      time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Station = c.Params("station")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// conditionsQuery holds the parameters of the derived-conditions endpoint.
type conditionsQuery struct {
	Station string `validate:"required"`
	Runway  int    `validate:"min=0,max=360"`
}

func (q *conditionsQuery) bind(c *fiber.Ctx) error {
	q.Station = c.Params("station")

	runway := c.Query("runway")
	if runway == "" {
		return errors.New("runway query parameter is required")
	}
	heading, err := strconv.Atoi(runway)
	if err != nil {
		return errors.New("runway must be a heading in degrees")
	}
	q.Runway = heading
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
