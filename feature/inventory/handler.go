package inventory

import (
	"errors"
	"strconv"

	"listing-manager/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the listing display surface.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the listing routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/listings")
	group.Get("/", h.HandleListListings)
	group.Get("/:id", h.HandleGetListing)
}

// HandleListListings returns a dealer's current listings.
// @Summary List Listings
// @Description Returns a dealer's current inventory listings with their pricing offers.
// @Tags listings
// @Produce json
// @Param dealer query string true "Dealer code"
// @Success 200 {array} inventory.Listing "Listings"
// @Failure 400 {object} map[string]string "Missing Dealer"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /listings [get]
func (h *Handler) HandleListListings(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	dealer := c.Query("dealer")
	if dealer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "dealer query parameter required"})
	}

	listings, err := h.service.ListListings(c.Context(), dealer)
	if err != nil {
		if errors.Is(err, ErrDealerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Listing query failed", zap.String("dealer", dealer), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(listings)
}

// HandleGetListing returns one listing.
// @Summary Get Listing
// @Description Returns one inventory listing with its pricing offers.
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} inventory.Listing "Listing"
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /listings/{id} [get]
func (h *Handler) HandleGetListing(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "listing id must be numeric"})
	}

	listing, err := h.service.GetListing(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Listing lookup failed", zap.Uint64("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(listing)
}
