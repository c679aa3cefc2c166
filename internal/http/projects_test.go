package http_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCreateEndpoint(t *testing.T) {
	api := newTestAPI(t)
	session := api.register(t, "commissioner@example.com", "client")
	artisanSession := api.register(t, "builder@example.com", "artisan")

	t.Run("requires authentication", func(t *testing.T) {
		resp := api.request(t, jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title": "A chair",
		}))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("requires a client account", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title": "A chair",
		}), artisanSession))
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "client account required", body["error"])
	})

	t.Run("posts an open commission", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title":        "Set of four dining chairs",
			"description":  "Walnut, woven seats, based on the attached concept.",
			"budget_cents": 320000,
		}), session))
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, true, body["ok"])

		project := body["project"].(map[string]any)
		assert.Len(t, project["public_id"].(string), 20)
		assert.Equal(t, "open", project["status"])
		assert.Equal(t, "Set of four dining chairs", project["title"])
		assert.EqualValues(t, 320000, project["budget_cents"])

		createdAt, err := time.Parse(time.RFC3339, project["created_at"].(string))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), createdAt, time.Minute)
	})

	t.Run("rejects a blank title", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title": "   ",
		}), session))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Title is required", body["error"])
	})

	t.Run("rejects an unknown specialization", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title":             "A bench",
			"specialization_id": 9999,
		}), session))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("attaches an owned reference image", func(t *testing.T) {
		gen := api.request(t, withSession(generationRequest(t, "four walnut dining chairs", ""), session))
		require.Equal(t, fiber.StatusOK, gen.StatusCode)
		imageID := decodeBody(t, gen)["image"].(map[string]any)["id"].(float64)

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title":              "Chairs from my concept",
			"generated_image_id": imageID,
		}), session))
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		project := decodeBody(t, resp)["project"].(map[string]any)

		show := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects/"+project["public_id"].(string), nil))
		require.Equal(t, fiber.StatusOK, show.StatusCode)
		shown := decodeBody(t, show)["project"].(map[string]any)
		url, ok := shown["reference_image_url"].(string)
		require.True(t, ok, "expected reference_image_url on the project")
		assert.True(t, strings.HasPrefix(url, "/files/generated/"))
	})

	t.Run("rejects another account's reference image", func(t *testing.T) {
		otherSession := api.register(t, "someone-else@example.com", "client")
		gen := api.request(t, withSession(generationRequest(t, "a private concept", ""), otherSession))
		require.Equal(t, fiber.StatusOK, gen.StatusCode)
		imageID := decodeBody(t, gen)["image"].(map[string]any)["id"].(float64)

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title":              "Borrowed concept",
			"generated_image_id": imageID,
		}), session))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Reference image belongs to another account", body["error"])
	})

	t.Run("anonymous images are attachable by anyone", func(t *testing.T) {
		gen := api.request(t, generationRequest(t, "a shared concept", "203.0.113.90"))
		require.Equal(t, fiber.StatusOK, gen.StatusCode)
		imageID := decodeBody(t, gen)["image"].(map[string]any)["id"].(float64)

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
			"title":              "From an anonymous sketch",
			"generated_image_id": imageID,
		}), session))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})
}

func TestProjectListEndpoint(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice@example.com", "client")
	bob := api.register(t, "bob@example.com", "client")

	first := api.createProject(t, alice, "Alice's bookshelf")
	api.createProject(t, alice, "Alice's bed frame")
	api.createProject(t, bob, "Bob's workbench")

	// Cancel one so the default board excludes it.
	resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+first+"/cancel", nil), alice))
	resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	t.Run("default board lists open projects newest first", func(t *testing.T) {
		resp := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects", nil))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.EqualValues(t, 2, body["total"])

		list := body["projects"].([]any)
		require.Len(t, list, 2)
		assert.Equal(t, "Bob's workbench", list[0].(map[string]any)["title"])
		assert.Equal(t, "Alice's bed frame", list[1].(map[string]any)["title"])
	})

	t.Run("status filter", func(t *testing.T) {
		resp := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects?status=cancelled", nil))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.EqualValues(t, 1, body["total"])
		assert.Equal(t, "Alice's bookshelf", body["projects"].([]any)[0].(map[string]any)["title"])
	})

	t.Run("mine returns own projects in any status", func(t *testing.T) {
		req := withSession(httptest.NewRequest(fiber.MethodGet, "/api/v1/projects?mine=true", nil), alice)
		resp := api.request(t, req)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.EqualValues(t, 2, body["total"])
	})

	t.Run("mine with status narrows further", func(t *testing.T) {
		req := withSession(httptest.NewRequest(fiber.MethodGet, "/api/v1/projects?mine=true&status=cancelled", nil), alice)
		resp := api.request(t, req)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("mine requires authentication", func(t *testing.T) {
		resp := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects?mine=true", nil))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestProjectShowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	session := api.register(t, "shower@example.com", "client")
	publicID := api.createProject(t, session, "A display cabinet")

	t.Run("finds by public id", func(t *testing.T) {
		resp := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects/"+publicID, nil))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		project := body["project"].(map[string]any)
		assert.Equal(t, "A display cabinet", project["title"])
		assert.Equal(t, publicID, project["public_id"])
	})

	t.Run("unknown public id", func(t *testing.T) {
		resp := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects/ffffffffffffffffffff", nil))
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "project not found", body["error"])
	})
}

func TestProjectTransitionsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	client := api.register(t, "owner@example.com", "client")
	artisan := api.register(t, "worker@example.com", "artisan")
	stranger := api.register(t, "stranger@example.com", "client")

	t.Run("cancel an open project", func(t *testing.T) {
		publicID := api.createProject(t, client, "Cancelled before work")

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/cancel", nil), client))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "cancelled", body["project"].(map[string]any)["status"])
	})

	t.Run("complete requires work in progress", func(t *testing.T) {
		publicID := api.createProject(t, client, "Never started")

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/complete", nil), client))
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "project is not in a state that allows that", body["error"])
	})

	t.Run("only the owner can transition", func(t *testing.T) {
		publicID := api.createProject(t, client, "Someone else's project")

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/cancel", nil), stranger))
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "only the project owner can do that", body["error"])
	})

	t.Run("accepted work runs to completion", func(t *testing.T) {
		publicID := api.createProject(t, client, "Full lifecycle")
		proposalID := api.submitProposal(t, artisan, publicID)
		api.acceptProposal(t, client, proposalID)

		show := api.request(t, httptest.NewRequest(fiber.MethodGet, "/api/v1/projects/"+publicID, nil))
		require.Equal(t, fiber.StatusOK, show.StatusCode)
		assert.Equal(t, "in_progress", decodeBody(t, show)["project"].(map[string]any)["status"])

		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/complete", nil), client))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "completed", decodeBody(t, resp)["project"].(map[string]any)["status"])

		// Completed projects cannot be cancelled.
		again := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/cancel", nil), client))
		defer again.Body.Close()
		assert.Equal(t, fiber.StatusConflict, again.StatusCode)
	})

	t.Run("unknown project", func(t *testing.T) {
		resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/ffffffffffffffffffff/cancel", nil), client))
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
