package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sc2371/afterschool-booking/internal/metrics"
	"github.com/sc2371/afterschool-booking/internal/models"
	"github.com/sc2371/afterschool-booking/internal/repository"
	"github.com/sc2371/afterschool-booking/internal/service"
	"github.com/sc2371/afterschool-booking/pkg/logger"
)

func newOrderTestRouter(lessons ...models.Lesson) (*chi.Mux, *repository.MemoryStore) {
	store := repository.NewMemoryStore(lessons...)
	reservations := service.NewReservationService(store, metrics.New(prometheus.NewRegistry()))
	log := logger.New("error")
	handler := NewOrderHandler(reservations, log)

	r := chi.NewRouter()
	r.Post("/api/orders", handler.CreateOrder)
	r.Get("/api/orders/{orderId}", handler.GetOrder)
	return r, store
}

func catalogLesson(subject string, space int) models.Lesson {
	return models.Lesson{
		ID:       uuid.NewString(),
		Subject:  subject,
		Location: "London",
		Price:    100,
		Space:    space,
	}
}

func postOrder(t *testing.T, router http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if str, ok := body.(string); ok {
		payload = []byte(str)
	} else {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	math := catalogLesson("Math", 5)
	music := catalogLesson("Music", 4)
	missingID := uuid.NewString()

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkBody      func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "successful order",
			requestBody: models.OrderRequest{
				Name:        "Jane Doe",
				PhoneNumber: "5551234567",
				LessonIDs:   []string{math.ID, music.ID},
				Quantity:    2,
			},
			expectedStatus: http.StatusCreated,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				var order models.Order
				if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if order.ID == "" {
					t.Error("order ID is empty")
				}
				if len(order.Items) != 2 {
					t.Errorf("expected 2 items, got %d", len(order.Items))
				}
			},
		},
		{
			name: "digit in name",
			requestBody: models.OrderRequest{
				Name:        "Jane2",
				PhoneNumber: "5551234567",
				LessonIDs:   []string{math.ID},
				Quantity:    1,
			},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode error: %v", err)
				}
				if resp.Field != "name" {
					t.Errorf("error field = %q, want name", resp.Field)
				}
			},
		},
		{
			name: "invalid phone number",
			requestBody: models.OrderRequest{
				Name:        "Jane Doe",
				PhoneNumber: "555",
				LessonIDs:   []string{math.ID},
				Quantity:    1,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown lesson",
			requestBody: models.OrderRequest{
				Name:        "Jane Doe",
				PhoneNumber: "5551234567",
				LessonIDs:   []string{missingID},
				Quantity:    1,
			},
			expectedStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode error: %v", err)
				}
				if resp.LessonID != missingID {
					t.Errorf("error lessonId = %q, want %q", resp.LessonID, missingID)
				}
			},
		},
		{
			name: "insufficient capacity",
			requestBody: models.OrderRequest{
				Name:        "Jane Doe",
				PhoneNumber: "5551234567",
				LessonIDs:   []string{music.ID},
				Quantity:    9,
			},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode error: %v", err)
				}
				if len(resp.Subjects) != 1 || resp.Subjects[0] != "Music" {
					t.Errorf("error subjects = %v, want [Music]", resp.Subjects)
				}
			},
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field rejected",
			requestBody:    `{"name":"Jane Doe","phoneNumber":"5551234567","lessonIDs":["` + math.ID + `"],"quantity":1,"admin":true}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newOrderTestRouter(math, music)

			w := postOrder(t, router, tt.requestBody)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.checkBody != nil {
				tt.checkBody(t, w)
			}
		})
	}
}

func TestOrderHandler_CreateOrder_DrainsCapacity(t *testing.T) {
	l1 := catalogLesson("Math", 3)
	router, store := newOrderTestRouter(l1)

	w := postOrder(t, router, models.OrderRequest{
		Name:        "Jane Doe",
		PhoneNumber: "5551234567",
		LessonIDs:   []string{l1.ID},
		Quantity:    3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("first order status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}

	lessons, _ := store.GetLessons(context.Background(), []string{l1.ID})
	if lessons[l1.ID].Space != 0 {
		t.Fatalf("space after draining order = %d, want 0", lessons[l1.ID].Space)
	}

	w = postOrder(t, router, models.OrderRequest{
		Name:        "Jane Doe",
		PhoneNumber: "5551234567",
		LessonIDs:   []string{l1.ID},
		Quantity:    1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("follow-up order status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if len(resp.Subjects) != 1 || resp.Subjects[0] != "Math" {
		t.Errorf("error subjects = %v, want [Math]", resp.Subjects)
	}
}

func TestOrderHandler_GetOrder(t *testing.T) {
	math := catalogLesson("Math", 5)
	router, _ := newOrderTestRouter(math)

	w := postOrder(t, router, models.OrderRequest{
		Name:        "Jane Doe",
		PhoneNumber: "5551234567",
		LessonIDs:   []string{math.ID},
		Quantity:    2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("place order status = %d (body %s)", w.Code, w.Body.String())
	}
	var placed models.Order
	if err := json.NewDecoder(w.Body).Decode(&placed); err != nil {
		t.Fatalf("failed to decode placed order: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+placed.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("get order status = %d, want 200", w.Code)
	}
	var fetched models.Order
	if err := json.NewDecoder(w.Body).Decode(&fetched); err != nil {
		t.Fatalf("failed to decode fetched order: %v", err)
	}
	if fetched.ID != placed.ID || len(fetched.Items) != 1 || fetched.Items[0].LessonID != math.ID {
		t.Errorf("fetched order = %+v, want round trip of %+v", fetched, placed)
	}

	// Unknown but well-formed ID
	req = httptest.NewRequest(http.MethodGet, "/api/orders/"+uuid.NewString(), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", w.Code)
	}

	// Malformed ID
	req = httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed order ID status = %d, want 400", w.Code)
	}
}
