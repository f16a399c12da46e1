package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCountyService is a mock implementation of the CountyService interface
type MockCountyService struct {
	mock.Mock
}

func (m *MockCountyService) CountyForCoordinate(ctx context.Context, lat float64, lon float64) (*models.CountyLookup, error) {
	args := m.Called(ctx, lat, lon)
	return args.Get(0).(*models.CountyLookup), args.Error(1)
}

func (m *MockCountyService) CountyForPostalCode(ctx context.Context, zip string) (*models.CountyLookup, error) {
	args := m.Called(ctx, zip)
	return args.Get(0).(*models.CountyLookup), args.Error(1)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCountyHandler_County(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lat, lon := 33.9519, -83.3576

	tests := []struct {
		name           string
		query          string
		mockLookup     *models.CountyLookup
		mockError      error
		callsService   bool
		expectedStatus int
		expectedBody   map[string]any
	}{
		{
			name:           "missing query parameters",
			query:          "lat=33.9519",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]any{"error": "missing required query parameters 'lat' and 'lon'"},
		},
		{
			name:           "invalid latitude",
			query:          "lat=abc&lon=-83.3576",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]any{"error": "invalid latitude format"},
		},
		{
			name:           "invalid longitude",
			query:          "lat=33.9519&lon=abc",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]any{"error": "invalid longitude format"},
		},
		{
			name:           "found",
			query:          "lat=33.9519&lon=-83.3576",
			mockLookup:     &models.CountyLookup{County: "Clarke County", Display: "CLARKE", Key: "33.951900,-83.357600", Latitude: &lat, Longitude: &lon},
			callsService:   true,
			expectedStatus: http.StatusOK,
			expectedBody: map[string]any{
				"county":    "Clarke County",
				"display":   "CLARKE",
				"key":       "33.951900,-83.357600",
				"latitude":  33.9519,
				"longitude": -83.3576,
			},
		},
		{
			name:           "not found",
			query:          "lat=33.9519&lon=-83.3576",
			callsService:   true,
			expectedStatus: http.StatusNotFound,
			expectedBody:   map[string]any{"error": "no county found for the specified coordinates"},
		},
		{
			name:           "rejected coordinate",
			query:          "lat=33.9519&lon=-83.3576",
			mockError:      fmt.Errorf("service: invalid latitude: 91.000000: %w", apperrors.ErrInvalidInput),
			callsService:   true,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]any{"error": "service: invalid latitude: 91.000000: invalid input"},
		},
		{
			name:           "service error",
			query:          "lat=33.9519&lon=-83.3576",
			mockError:      assert.AnError,
			callsService:   true,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   map[string]any{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockCountyService)
			handler := NewCountyHandler(mockSvc)
			if tt.callsService {
				mockSvc.On("CountyForCoordinate", mock.Anything, lat, lon).Return(tt.mockLookup, tt.mockError)
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/county?"+tt.query, nil)

			handler.County(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decodeBody(t, w))
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestCountyHandler_CountyByPostalCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		zip            string
		mockLookup     *models.CountyLookup
		mockError      error
		expectedStatus int
		expectedBody   map[string]any
	}{
		{
			name:           "missing zip",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]any{"error": "missing required query parameter 'zip'"},
		},
		{
			name:           "found",
			zip:            "30601",
			mockLookup:     &models.CountyLookup{County: "Clarke County", Display: "CLARKE", Key: "zip:30601", PostalCode: "30601"},
			expectedStatus: http.StatusOK,
			expectedBody: map[string]any{
				"county":      "Clarke County",
				"display":     "CLARKE",
				"key":         "zip:30601",
				"postal_code": "30601",
			},
		},
		{
			name:           "not found",
			zip:            "99999",
			expectedStatus: http.StatusNotFound,
			expectedBody:   map[string]any{"error": "no county found for the specified postal code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockCountyService)
			handler := NewCountyHandler(mockSvc)
			if tt.zip != "" {
				mockSvc.On("CountyForPostalCode", mock.Anything, tt.zip).Return(tt.mockLookup, tt.mockError)
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/county/zip?zip="+tt.zip, nil)

			handler.CountyByPostalCode(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decodeBody(t, w))
			mockSvc.AssertExpectations(t)
		})
	}
}
