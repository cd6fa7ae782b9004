package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
)

type catalogStub struct {
	products []model.ProductView
	slugs    []string
}

func (c *catalogStub) ListCategories(context.Context) ([]model.Category, error) {
	return nil, nil
}

func (c *catalogStub) ListProducts(_ context.Context, slug string) ([]model.ProductView, error) {
	c.slugs = append(c.slugs, slug)
	return c.products, nil
}

func (c *catalogStub) GetProduct(_ context.Context, slug string) (*model.ProductView, error) {
	for _, p := range c.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, model.ErrProductNotFound
}

func (c *catalogStub) FindProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			product := p.Product
			return &product, nil
		}
	}
	return nil, model.ErrProductNotFound
}

type cartStorageStub map[string][]byte

func (s cartStorageStub) Load(_ context.Context, token string) ([]byte, error) {
	payload, ok := s[token]
	if !ok {
		return nil, model.ErrCartNotFound
	}
	return payload, nil
}

func (s cartStorageStub) Save(_ context.Context, token string, payload []byte) error {
	s[token] = payload
	return nil
}

// authStub resolves bearer tokens from a fixed table.
type authStub struct {
	service.AuthService
	identities map[string]*model.Identity
}

func (a *authStub) Identify(_ context.Context, token string) (*model.Identity, error) {
	return a.identities[token], nil
}

type mailerStub struct {
	mails []model.Mail
}

func (m *mailerStub) Send(_ context.Context, mail model.Mail) error {
	m.mails = append(m.mails, mail)
	return nil
}

type checkoutStoreStub map[string]model.Checkout

func (s checkoutStoreStub) Find(_ context.Context, token string) (*model.Checkout, error) {
	c, ok := s[token]
	if !ok {
		return nil, model.ErrCheckoutNotFound
	}
	return &c, nil
}

func (s checkoutStoreStub) Store(_ context.Context, checkout *model.Checkout) error {
	s[checkout.Token] = *checkout
	return nil
}

type mediaStub struct {
	names []string
}

func (m *mediaStub) Upload(_ context.Context, bucket, name string, body io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.names = append(m.names, name)
	return "https://cdn.example.com/" + bucket + "/" + name, nil
}

type discardEvents struct{}

func (discardEvents) Dispatch(service.Event) error { return nil }

type routerFixture struct {
	handler   http.Handler
	catalog   *catalogStub
	carts     cartStorageStub
	checkouts checkoutStoreStub
	media     *mediaStub
}

func setupRouter(mailer model.Mailer) *routerFixture {
	return setupRouterWith(mailer, Options{})
}

func setupRouterWith(mailer model.Mailer, opts Options) *routerFixture {
	product := func(name string, price int64, inStock bool) model.ProductView {
		return model.ProductView{Product: model.Product{
			ID:      uuid.New(),
			Name:    name,
			Slug:    model.Slugify(name),
			Price:   decimal.NewFromInt(price),
			InStock: inStock,
		}}
	}
	f := &routerFixture{
		catalog: &catalogStub{products: []model.ProductView{
			product("Export Box", 700, true),
			product("Pine Box", 300, true),
			product("Teak Box", 1500, false),
		}},
		carts:     cartStorageStub{},
		checkouts: checkoutStoreStub{},
		media:     &mediaStub{},
	}

	auth := &authStub{identities: map[string]*model.Identity{
		"customer": {UserID: uuid.New(), Email: "ravi@example.com"},
		"owner":    {UserID: uuid.New(), Email: "owner@example.com", IsAdmin: true},
	}}
	leads := service.NewLeadService(service.LeadConfig{
		StoreName:      "EMMES Industries",
		WhatsAppNumber: "919843167364",
	}, mailer, discardEvents{})

	carts := service.NewCartService(f.carts)
	checkouts := service.NewCheckoutService(service.CheckoutConfig{Mode: model.ModeUPI},
		f.checkouts, carts, nil, f.media)
	f.handler = Router(Services{
		Catalog:  f.catalog,
		Cart:     carts,
		Checkout: checkouts,
		Auth:     auth,
		Admin:    service.NewAdminService(nil, f.catalog, nil, f.media, discardEvents{}),
		Leads:    leads,
	}, opts)
	return f
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{errors.Wrap(model.ErrValidation, "bad"), http.StatusBadRequest},
		{model.ErrSlugTaken, http.StatusBadRequest},
		{model.ErrUnknownCategory, http.StatusBadRequest},
		{model.ErrAuthRequired, http.StatusUnauthorized},
		{model.ErrAccessDenied, http.StatusForbidden},
		{model.ErrConfirmationRequired, http.StatusConflict},
		{model.ErrInvalidTransition, http.StatusConflict},
		{model.ErrProductNotFound, http.StatusNotFound},
		{model.WithKind(model.ErrUpload, errors.New("cdn down")), http.StatusBadGateway},
		{model.ErrOptimisticLock, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := setupRouter(nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/auth", decodeBody(t, rec)["redirect"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	req.Header.Set("Authorization", "Bearer customer")
	rec = f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, hasRedirect := decodeBody(t, rec)["redirect"]
	assert.False(t, hasRedirect)

	assert.Empty(t, f.catalog.slugs)
}

func TestListProductsQuery(t *testing.T) {
	f := setupRouter(nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?category=wooden-boxes&stock=in-stock&sort=low-high&search=box", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"wooden-boxes"}, f.catalog.slugs)

	var products []model.ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Pine Box", products[0].Name)
	assert.Equal(t, "Export Box", products[1].Name)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?sort=alphabetical", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartCookie(t *testing.T) {
	f := setupRouter(nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cartCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	_, err := uuid.Parse(cookies[0].Value)
	require.NoError(t, err)

	pine := f.catalog.products[1]
	body := strings.NewReader(`{"product_id":"` + pine.ID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body)
	req.AddCookie(cookies[0])
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "a valid cart cookie is reused")
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])
	assert.Contains(t, f.carts, cookies[0].Value)

	teak := f.catalog.products[2]
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"`+teak.ID.String()+`"}`))
	req.AddCookie(cookies[0])
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":`))
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeRequiresSession(t *testing.T) {
	f := setupRouter(nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "customer"})
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ravi@example.com", decodeBody(t, rec)["email"])
}

func TestSendEnquiry(t *testing.T) {
	const enquiry = `{"name":"Ravi","phone":"9876543210","product":"Cable Drums"}`

	t.Run("Preflight", func(t *testing.T) {
		f := setupRouter(nil)
		rec := f.do(httptest.NewRequest(http.MethodOptions, "/send-enquiry", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, relayAllowedHeaders, rec.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("Relay not configured", func(t *testing.T) {
		f := setupRouter(nil)
		rec := f.do(httptest.NewRequest(http.MethodPost, "/send-enquiry", strings.NewReader(enquiry)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "RESEND_API_KEY is not configured", body["error"])
	})

	t.Run("Missing fields", func(t *testing.T) {
		f := setupRouter(&mailerStub{})
		rec := f.do(httptest.NewRequest(http.MethodPost, "/send-enquiry", strings.NewReader(`{"name":"Ravi"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Name, phone, and product are required", decodeBody(t, rec)["error"])
	})

	t.Run("Success", func(t *testing.T) {
		mailer := &mailerStub{}
		f := setupRouter(mailer)
		rec := f.do(httptest.NewRequest(http.MethodPost, "/send-enquiry", strings.NewReader(enquiry)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, true, decodeBody(t, rec)["success"])
		assert.Len(t, mailer.mails, 1)
	})
}

func TestGreetingLinkRoute(t *testing.T) {
	f := setupRouter(nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/whatsapp", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	link, _ := decodeBody(t, rec)["link"].(string)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/919843167364?text="))
}

func TestCartLockedWhileAwaitingPayment(t *testing.T) {
	f := setupRouter(nil)
	token := uuid.NewString()
	cookie := &http.Cookie{Name: cartCookie, Value: token}

	f.checkouts[token] = model.Checkout{Token: token, Mode: model.ModeUPI, Stage: model.StagePayment, OrderID: uuid.New()}
	pine := f.catalog.products[1]
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"`+pine.ID.String()+`"}`))
	req.AddCookie(cookie)
	rec := f.do(req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, f.carts, token)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusConflict, f.do(req).Code)

	f.checkouts[token] = model.Checkout{Token: token, Mode: model.ModeUPI, Stage: model.StageDone}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"`+pine.ID.String()+`"}`))
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func imageUpload(t *testing.T, size int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "crate.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), size))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer owner")
	return req
}

func TestUploadSizeLimit(t *testing.T) {
	f := setupRouterWith(nil, Options{MaxUploadSize: 1024})

	rec := f.do(imageUpload(t, 4096))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.media.names)

	rec = f.do(imageUpload(t, 100))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.media.names, 1)
	assert.Equal(t, "https://cdn.example.com/product-images/"+f.media.names[0], decodeBody(t, rec)["url"])
}
