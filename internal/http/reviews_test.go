package http_test

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commission struct {
	clientSession  string
	artisanSession string
	artisanID      uint
	publicID       string
	proposalID     uint
}

// completedCommission walks a project through proposal, acceptance and
// completion so a review becomes possible.
func completedCommission(t *testing.T, api *testAPI, tag string) commission {
	t.Helper()
	clientEmail := tag + "-client@example.com"
	artisanEmail := tag + "-artisan@example.com"

	client := api.register(t, clientEmail, "client")
	artisan := api.register(t, artisanEmail, "artisan")
	publicID := api.createProject(t, client, "Commission "+tag)
	proposalID := api.submitProposal(t, artisan, publicID)
	api.acceptProposal(t, client, proposalID)
	api.completeProject(t, client, publicID)

	return commission{
		clientSession:  client,
		artisanSession: artisan,
		artisanID:      api.userID(t, artisanEmail),
		publicID:       publicID,
		proposalID:     proposalID,
	}
}

func TestReviewCreateEndpoint(t *testing.T) {
	api := newTestAPI(t)
	c := completedCommission(t, api, "primary")

	t.Run("requires authentication", func(t *testing.T) {
		resp := api.request(t, jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+c.publicID+"/reviews", fiber.Map{
			"rating": 5,
		}))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("records the review and folds the rating", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+c.publicID+"/reviews", fiber.Map{
			"rating":  5,
			"comment": "Beautiful joinery, delivered on time.",
		}), c.clientSession))
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		body := decodeBody(t, resp)
		require.Equal(t, true, body["ok"])

		review := body["review"].(map[string]any)
		assert.EqualValues(t, c.artisanID, review["artisan_id"])
		assert.EqualValues(t, 5, review["rating"])
		assert.Equal(t, "Beautiful joinery, delivered on time.", review["comment"])

		show := api.request(t, httptest.NewRequest(fiber.MethodGet, fmt.Sprintf("/api/v1/artisans/%d", c.artisanID), nil))
		require.Equal(t, fiber.StatusOK, show.StatusCode)
		rating := decodeBody(t, show)["artisan"].(map[string]any)["rating"].(map[string]any)
		assert.EqualValues(t, 5, rating["average"])
		assert.EqualValues(t, 1, rating["count"])

		directory := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/artisans?min_rating=4", nil))
		require.Equal(t, fiber.StatusOK, directory.StatusCode)
		found := false
		for _, entry := range decodeBody(t, directory)["artisans"].([]any) {
			card := entry.(map[string]any)
			if uint(card["user_id"].(float64)) == c.artisanID {
				found = true
			}
		}
		assert.True(t, found, "reviewed artisan should pass the rating filter")

		list := api.request(t, httptest.NewRequest(fiber.MethodGet, fmt.Sprintf("/api/v1/artisans/%d/reviews", c.artisanID), nil))
		require.Equal(t, fiber.StatusOK, list.StatusCode)
		listBody := decodeBody(t, list)
		assert.EqualValues(t, 1, listBody["total"])
		entries := listBody["reviews"].([]any)
		require.Len(t, entries, 1)
		entry := entries[0].(map[string]any)
		assert.EqualValues(t, 5, entry["rating"])
		assert.Equal(t, "primary-client", entry["author"].(map[string]any)["display_name"])
	})

	t.Run("one review per project", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+c.publicID+"/reviews", fiber.Map{
			"rating":  4,
			"comment": "Changed my mind.",
		}), c.clientSession))
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "project already has a review", body["error"])
	})

	t.Run("only the commissioning client reviews", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+c.publicID+"/reviews", fiber.Map{
			"rating": 5,
		}), c.artisanSession))
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "only the project owner may review it", body["error"])
	})

	t.Run("project must be completed", func(t *testing.T) {
		openID := api.createProject(t, c.clientSession, "Still open commission")
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+openID+"/reviews", fiber.Map{
			"rating": 5,
		}), c.clientSession))
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "only completed projects can be reviewed", body["error"])
	})

	t.Run("rating must be one through five", func(t *testing.T) {
		fresh := completedCommission(t, api, "range")
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+fresh.publicID+"/reviews", fiber.Map{
			"rating": 6,
		}), fresh.clientSession))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Rating must be between 1 and 5", body["error"])
	})

	t.Run("unknown project", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/ffffffffffffffffffff/reviews", fiber.Map{
			"rating": 5,
		}), c.clientSession))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
