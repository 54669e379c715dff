package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCuttingPlanBottleneck(t *testing.T) {
	materials := []models.CuttingMaterialInput{
		{MaterialName: "Vamp", RequiredQuantity: 2000, AlreadyCompleted: 1500, CompletingToday: 300},
		{MaterialName: "Quarter", RequiredQuantity: 2000, AlreadyCompleted: 1200, CompletingToday: 300},
		{MaterialName: "Tongue", RequiredQuantity: 2000, AlreadyCompleted: 1800, CompletingToday: 0},
	}

	plan := BuildCuttingPlan(materials)

	require.Len(t, plan.Materials, 3)
	assert.Equal(t, 1800.0, plan.Materials[0].TotalAfter)
	assert.Equal(t, 200.0, plan.Materials[0].Remaining)
	assert.Equal(t, 1500.0, plan.Materials[1].TotalAfter)
	assert.Equal(t, 500.0, plan.Materials[1].Remaining)
	assert.Equal(t, 1800.0, plan.Materials[2].TotalAfter)

	// Every pair needs one of each material, so the scarcest caps the output.
	assert.Equal(t, 1500.0, plan.MinimumAvailable)
	assert.False(t, plan.GeneratedAt.IsZero())
}

func TestBuildCuttingPlanOverCompletion(t *testing.T) {
	// Completing more than required clamps the remaining balance at zero; the
	// surplus still shows through total_after.
	plan := BuildCuttingPlan([]models.CuttingMaterialInput{
		{MaterialName: "Vamp", RequiredQuantity: 100, AlreadyCompleted: 90, CompletingToday: 20},
	})

	require.Len(t, plan.Materials, 1)
	assert.Equal(t, 110.0, plan.Materials[0].TotalAfter)
	assert.Equal(t, 0.0, plan.Materials[0].Remaining)
	assert.Equal(t, 110.0, plan.MinimumAvailable)
}

func TestBuildCuttingPlanEmpty(t *testing.T) {
	plan := BuildCuttingPlan(nil)

	assert.Empty(t, plan.Materials)
	assert.Zero(t, plan.MinimumAvailable)
}

func newComputeRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/cutting/compute", ComputeCuttingPlan())
	return r
}

func TestComputeCuttingPlanEndpoint(t *testing.T) {
	r := newComputeRouter()

	body := models.CuttingComputeRequest{
		Materials: []models.CuttingMaterialInput{
			{MaterialName: "Vamp", RequiredQuantity: 2000, AlreadyCompleted: 1500, CompletingToday: 300},
			{MaterialName: "Quarter", RequiredQuantity: 2000, AlreadyCompleted: 1200, CompletingToday: 300},
		},
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cutting/compute", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var plan models.CuttingPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, 1500.0, plan.MinimumAvailable)
	require.Len(t, plan.Materials, 2)
	assert.Equal(t, "Vamp", plan.Materials[0].MaterialName)
}

func TestComputeCuttingPlanEndpointValidation(t *testing.T) {
	r := newComputeRouter()

	cases := []struct {
		name string
		body string
	}{
		{"missing materials", `{}`},
		{"blank material name", `{"materials":[{"material_name":"  ","required_quantity":10}]}`},
		{"negative quantity", `{"materials":[{"material_name":"Vamp","required_quantity":-1}]}`},
		{"negative completing today", `{"materials":[{"material_name":"Vamp","required_quantity":10,"completing_today":-5}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/cutting/compute", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
