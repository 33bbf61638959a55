package handlers

import (
	"log/slog"

	webmodels "github.com/ellavondegurechaff/materialpool/backend/models"
	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/gofiber/fiber/v2"
)

// parseMaterialQuery reads list filters from the query string
func parseMaterialQuery(c *fiber.Ctx) (materials.Query, map[string]string) {
	invalid := make(map[string]string)

	q := materials.Query{
		Filters: materials.Filters{
			Category:   c.Query("category"),
			Identifier: c.Query("identifier"),
			Holder:     c.Query("holder"),
			HolderName: c.Query("holder_name"),
		},
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("limit", materials.DefaultPageSize),
		Sort:     materials.ParseSortKey(c.Query("sort")),
	}

	if raw := c.Query("status"); raw != "" {
		status, ok := materials.ParseStatus(raw)
		if !ok {
			invalid["status"] = "Status must be idle or in_use"
		}
		q.Filters.Status = status
	}

	var err error
	if q.Filters.From, err = parseTimeParam(c.Query("from"), false); err != nil {
		invalid["from"] = "Expected YYYY-MM-DD or RFC3339"
	}
	if q.Filters.To, err = parseTimeParam(c.Query("to"), true); err != nil {
		invalid["to"] = "Expected YYYY-MM-DD or RFC3339"
	}

	return q, invalid
}

func MaterialsList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, invalid := parseMaterialQuery(c)
		if len(invalid) > 0 {
			return utils.SendBadRequest(c, "Invalid search parameters", invalid)
		}

		page, err := webApp.Materials.List(c.Context(), viewerFrom(c), q)
		if err != nil {
			return handleDomainError(c, err, "list materials")
		}

		return utils.SendPaginated(c,
			webmodels.NewMaterialDTOs(page.Items),
			webmodels.NewPaginationInfo(page.Page, page.PageSize, page.Total),
			"Materials retrieved successfully")
	}
}

func MaterialsCategories(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var status materials.Status
		if raw := c.Query("status"); raw != "" {
			parsed, ok := materials.ParseStatus(raw)
			if !ok {
				return utils.SendBadRequest(c, "Invalid status", map[string]string{"status": raw})
			}
			status = parsed
		}

		categories, err := webApp.Materials.Categories(c.Context(), status)
		if err != nil {
			return handleDomainError(c, err, "list categories")
		}
		return utils.SendSuccess(c, categories, "Categories retrieved successfully")
	}
}

func MaterialsSuggest(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		suggestions, err := webApp.Materials.SuggestCategories(c.Context(), c.Query("q"), c.QueryInt("limit", 0))
		if err != nil {
			return handleDomainError(c, err, "suggest categories")
		}
		return utils.SendSuccess(c, suggestions, "")
	}
}

func MaterialsDetail(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return sendInvalidMaterialID(c)
		}

		material, err := webApp.Materials.Get(c.Context(), viewerFrom(c), id)
		if err != nil {
			return handleDomainError(c, err, "get material")
		}
		return utils.SendSuccess(c, webmodels.NewMaterialDTO(*material), "Material retrieved successfully")
	}
}

// MaterialsClaim hands the caller exclusive use of an idle material.
func MaterialsClaim(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return sendInvalidMaterialID(c)
		}

		actor := actorFrom(c)
		material, err := webApp.Materials.Claim(c.Context(), actor, id)
		if err != nil {
			return handleDomainError(c, err, "claim material")
		}

		slog.Info("Material claimed",
			slog.Int64("material_id", material.ID),
			slog.String("username", actor.Username))

		return utils.SendSuccess(c, webmodels.ClaimResponse{
			ID:         material.ID,
			Identifier: material.Identifier,
			Category:   material.Category,
			UsageTime:  material.ClaimedAt,
		}, "Material claimed successfully")
	}
}

func StatsAPI(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := parseTimeParam(c.Query("from"), false)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid from date", nil)
		}
		to, err := parseTimeParam(c.Query("to"), true)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid to date", nil)
		}

		stats, err := webApp.Materials.Stats(c.Context(), viewerFrom(c), materials.StatsQuery{
			From:  from,
			To:    to,
			Limit: c.QueryInt("limit", 0),
		})
		if err != nil {
			return handleDomainError(c, err, "load statistics")
		}
		return utils.SendSuccess(c, stats, "Statistics retrieved successfully")
	}
}
