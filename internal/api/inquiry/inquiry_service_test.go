package inquiry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/havenai/go-estate-assistant/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, inq types.Inquiry) (string, error) {
	args := m.Called(ctx, inq)
	return args.String(0), args.Error(1)
}

// MockPropertyCreator is a mock implementation of PropertyCreator
type MockPropertyCreator struct {
	mock.Mock
}

func (m *MockPropertyCreator) Create(ctx context.Context, p types.Property) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func setupInquiryServiceTest() (*ServiceImpl, *MockRepository, *MockPropertyCreator) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockRepository)
	mockCreator := new(MockPropertyCreator)
	service := NewService(mockRepo, mockCreator, logger)
	return service, mockRepo, mockCreator
}

func intPtr(v int) *int { return &v }

func TestServiceImpl_Route(t *testing.T) {
	ctx := context.Background()

	t.Run("buy inquiry normalizes budget", func(t *testing.T) {
		service, mockRepo, mockCreator := setupInquiryServiceTest()
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(inq types.Inquiry) bool {
			return inq.Category == types.CategoryBuy && inq.Budget == 5000000 && inq.Location == "Pune"
		})).Return("id-1", nil).Once()

		id, err := service.Route(ctx, "buyer@example.com", "looking for a flat", types.Intent{
			Category: types.CategoryBuy, Location: "Pune", Budget: "50L",
		})
		require.NoError(t, err)
		assert.Equal(t, "id-1", id)
		mockCreator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("null location is scrubbed", func(t *testing.T) {
		service, mockRepo, _ := setupInquiryServiceTest()
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(inq types.Inquiry) bool {
			return inq.Location == ""
		})).Return("id-2", nil).Once()

		_, err := service.Route(ctx, "a@example.com", "hi", types.Intent{
			Category: types.CategoryGeneral, Location: "null",
		})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("sell intent synthesizes a buyer-facing listing", func(t *testing.T) {
		service, mockRepo, mockCreator := setupInquiryServiceTest()
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(inq types.Inquiry) bool {
			return inq.Category == types.CategorySell && inq.Budget == 5000000
		})).Return("id-3", nil).Once()
		mockCreator.On("Create", mock.Anything, mock.MatchedBy(func(p types.Property) bool {
			return p.Title == "2BHK for Sale in Pune" &&
				p.Action == types.ActionBuy &&
				p.Price == 5000000 &&
				p.CreatedBy == "seller@example.com"
		})).Return("prop-1", nil).Once()

		_, err := service.Route(ctx, "seller@example.com", "want to sell my flat", types.Intent{
			Category: types.CategorySell, Location: "Pune", Budget: "50L", BHK: intPtr(2),
		})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockCreator.AssertExpectations(t)
	})

	t.Run("sell without location uses placeholder", func(t *testing.T) {
		service, mockRepo, mockCreator := setupInquiryServiceTest()
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return("id-4", nil).Once()
		mockCreator.On("Create", mock.Anything, mock.MatchedBy(func(p types.Property) bool {
			return p.City == unknownCityPlaceholder && p.Title == "0BHK for Sale in Unknown City"
		})).Return("prop-2", nil).Once()

		_, err := service.Route(ctx, "seller@example.com", "selling", types.Intent{
			Category: types.CategorySell,
		})
		require.NoError(t, err)
		mockCreator.AssertExpectations(t)
	})

	t.Run("listing synthesis failure is swallowed", func(t *testing.T) {
		service, mockRepo, mockCreator := setupInquiryServiceTest()
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return("id-5", nil).Once()
		mockCreator.On("Create", mock.Anything, mock.Anything).Return("", errors.New("insert failed")).Once()

		id, err := service.Route(ctx, "seller@example.com", "selling", types.Intent{
			Category: types.CategorySell, Location: "Pune",
		})
		require.NoError(t, err)
		assert.Equal(t, "id-5", id)
		mockCreator.AssertExpectations(t)
	})

	t.Run("inquiry insert failure fails the route", func(t *testing.T) {
		service, mockRepo, mockCreator := setupInquiryServiceTest()
		expectedErr := errors.New("db down")
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return("", expectedErr).Once()

		_, err := service.Route(ctx, "a@example.com", "hi", types.Intent{Category: types.CategoryBuy})
		require.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		mockCreator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("identical calls append identical records", func(t *testing.T) {
		service, mockRepo, _ := setupInquiryServiceTest()
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return("id-6", nil).Twice()

		intent := types.Intent{Category: types.CategoryRent, Location: "Mumbai", Budget: "80k"}
		_, err := service.Route(ctx, "a@example.com", "rent please", intent)
		require.NoError(t, err)
		_, err = service.Route(ctx, "a@example.com", "rent please", intent)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, "buy_inquiries", collectionFor(types.CategoryBuy))
	assert.Equal(t, "rent_inquiries", collectionFor(types.CategoryRent))
	assert.Equal(t, "sell_inquiries", collectionFor(types.CategorySell))
	assert.Equal(t, "inquiry_logs", collectionFor(types.CategoryGeneral))
	assert.Equal(t, "inquiry_logs", collectionFor("weird"))
}
