package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"evalgo.org/gridmapper/internal/storage"
)

// serveMap handles GET /maps/* for maps kept by the filesystem store. The
// key has been validated by ValidateMapKey.
// @Summary Download a map
// @Description Serve a stored map through a signed, time-limited link
// @Tags Maps
// @Produce png
// @Param key path string true "Map key"
// @Param expires query int true "Expiry as Unix seconds"
// @Param sig query string true "Link signature"
// @Success 200 {file} binary "PNG map"
// @Failure 403 {object} APIError "Invalid download link"
// @Failure 404 {object} APIError "Map not found"
// @Failure 410 {object} APIError "Download link expired"
// @Router /maps/{key} [get]
func (s *Server) serveMap(c echo.Context) error {
	key, _ := c.Get("map_key").(string)

	fs, ok := s.store.(*storage.FileStore)
	if !ok {
		return NotFoundError("Map", key)
	}

	if err := fs.Verify(key, c.QueryParam("expires"), c.QueryParam("sig")); err != nil {
		if errors.Is(err, storage.ErrURLExpired) {
			return GoneError("Download link expired", "request a new map generation")
		}
		return ForbiddenError("Invalid download link", err.Error())
	}

	path, err := fs.Path(key)
	if err != nil {
		return NotFoundError("Map", key)
	}
	if _, err := os.Stat(path); err != nil {
		return NotFoundError("Map", key)
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.File(path)
}

// reference handles GET /api/reference.
// @Summary List bands and continents
// @Description Get the band plan and continent boxes requests may use
// @Tags Reference
// @Produce json
// @Success 200 {object} ReferenceResponse "Reference tables"
// @Router /api/reference [get]
func (s *Server) reference(c echo.Context) error {
	resp := ReferenceResponse{}
	for _, name := range s.tables.Bands() {
		b := s.tables.Band(name)
		resp.Bands = append(resp.Bands, BandInfo{
			Name:    b.Name,
			Color:   b.Color,
			VHF:     b.VHF,
			Aliases: b.Aliases,
		})
	}
	for _, code := range s.tables.ContinentCodes() {
		if cont, ok := s.tables.Continent(code); ok {
			resp.Continents = append(resp.Continents, cont)
		}
	}
	if other, ok := s.tables.Continent(s.tables.OtherCode()); ok {
		resp.Continents = append(resp.Continents, other)
	}

	return c.JSON(http.StatusOK, resp)
}
