package tests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
)

var errStoreDown = errors.New("connection reset by peer")

type mockEventDispatcher struct {
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.events = nil
}

var _ model.CatalogRepository = &mockCatalogRepository{}

type mockCatalogRepository struct {
	categories map[uuid.UUID]*model.Category
	products   map[uuid.UUID]*model.Product
	calls      int
	err        error
}

func newMockCatalogRepository() *mockCatalogRepository {
	return &mockCatalogRepository{
		categories: make(map[uuid.UUID]*model.Category),
		products:   make(map[uuid.UUID]*model.Product),
	}
}

func (m *mockCatalogRepository) addCategory(name, slug string, order int) *model.Category {
	c := &model.Category{ID: uuid.New(), Name: name, Slug: slug, DisplayOrder: order}
	m.categories[c.ID] = c
	return c
}

func (m *mockCatalogRepository) addProduct(category *model.Category, p model.Product) *model.Product {
	p.ID = uuid.New()
	p.CategoryID = category.ID
	if p.Slug == "" {
		p.Slug = model.Slugify(p.Name)
	}
	m.products[p.ID] = &p
	return &p
}

func (m *mockCatalogRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockCatalogRepository) ListCategories(context.Context) ([]model.Category, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *mockCatalogRepository) FindCategoryBySlug(_ context.Context, slug string) (*model.Category, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.categories {
		if c.Slug == slug {
			clone := *c
			return &clone, nil
		}
	}
	return nil, model.ErrCategoryNotFound
}

func (m *mockCatalogRepository) SaveCategory(_ context.Context, category *model.Category) error {
	m.calls++
	m.categories[category.ID] = category
	return nil
}

func (m *mockCatalogRepository) ListProducts(_ context.Context, categoryID uuid.UUID) ([]model.ProductView, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []model.ProductView
	for _, p := range m.products {
		if categoryID != uuid.Nil && p.CategoryID != categoryID {
			continue
		}
		out = append(out, m.view(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCatalogRepository) FindProductBySlug(_ context.Context, slug string) (*model.ProductView, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.Slug == slug {
			view := m.view(p)
			return &view, nil
		}
	}
	return nil, model.ErrProductNotFound
}

func (m *mockCatalogRepository) FindProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.products[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, model.ErrProductNotFound
}

func (m *mockCatalogRepository) CreateProduct(_ context.Context, product *model.Product) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if m.slugTaken(product) {
		return model.ErrSlugTaken
	}
	if _, ok := m.categories[product.CategoryID]; !ok {
		return model.ErrUnknownCategory
	}
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *mockCatalogRepository) UpdateProduct(_ context.Context, product *model.Product) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[product.ID]; !ok {
		return model.ErrProductNotFound
	}
	if m.slugTaken(product) {
		return model.ErrSlugTaken
	}
	if _, ok := m.categories[product.CategoryID]; !ok {
		return model.ErrUnknownCategory
	}
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *mockCatalogRepository) DeleteProduct(_ context.Context, id uuid.UUID) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return model.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockCatalogRepository) slugTaken(product *model.Product) bool {
	for _, p := range m.products {
		if p.Slug == product.Slug && p.ID != product.ID {
			return true
		}
	}
	return false
}

func (m *mockCatalogRepository) view(p *model.Product) model.ProductView {
	view := model.ProductView{Product: *p}
	if c, ok := m.categories[p.CategoryID]; ok {
		view.Category = model.CategoryRef{Name: c.Name, Slug: c.Slug}
	}
	return view
}

var _ model.CartStorage = &mockCartStorage{}

type mockCartStorage struct {
	store   map[string][]byte
	loadErr error
	saveErr error
}

func newMockCartStorage() *mockCartStorage {
	return &mockCartStorage{store: make(map[string][]byte)}
}

func (m *mockCartStorage) Load(_ context.Context, token string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	payload, ok := m.store[token]
	if !ok {
		return nil, model.ErrCartNotFound
	}
	return payload, nil
}

func (m *mockCartStorage) Save(_ context.Context, token string, payload []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.store[token] = payload
	return nil
}

var _ model.OrderRepository = &mockOrderRepository{}

type mockOrderRepository struct {
	store     map[uuid.UUID]*model.Order
	createErr error
	updateErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{store: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (m *mockOrderRepository) CreateAndReturn(order model.Order) (*model.Order, error) {
	stored := order
	m.store[order.ID] = &stored
	clone := stored
	return &clone, nil
}

func (m *mockOrderRepository) Create(_ context.Context, order *model.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.store[order.ID]; exists {
		return errors.New("order with this ID already exists")
	}
	clone := *order
	m.store[order.ID] = &clone
	return nil
}

func (m *mockOrderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	if order, ok := m.store[id]; ok {
		clone := *order
		return &clone, nil
	}
	return nil, model.ErrOrderNotFound
}

func (m *mockOrderRepository) Update(_ context.Context, order *model.Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.store[order.ID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if stored.Version != order.Version-1 {
		return model.ErrOptimisticLock
	}
	clone := *order
	m.store[order.ID] = &clone
	return nil
}

func (m *mockOrderRepository) ListNewestFirst(context.Context) ([]model.Order, error) {
	out := make([]model.Order, 0, len(m.store))
	for _, o := range m.store {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ model.CheckoutRepository = &mockCheckoutRepository{}

type mockCheckoutRepository struct {
	store map[string]model.Checkout
	// failStage makes Store fail for checkouts at that stage.
	failStage *model.CheckoutStage
}

func newMockCheckoutRepository() *mockCheckoutRepository {
	return &mockCheckoutRepository{store: make(map[string]model.Checkout)}
}

func (m *mockCheckoutRepository) Find(_ context.Context, token string) (*model.Checkout, error) {
	if c, ok := m.store[token]; ok {
		return &c, nil
	}
	return nil, model.ErrCheckoutNotFound
}

func (m *mockCheckoutRepository) Store(_ context.Context, checkout *model.Checkout) error {
	if m.failStage != nil && *m.failStage == checkout.Stage {
		return errStoreDown
	}
	m.store[checkout.Token] = *checkout
	return nil
}

type upload struct {
	bucket string
	name   string
	body   string
}

var _ model.MediaStore = &mockMediaStore{}

type mockMediaStore struct {
	uploads []upload
	err     error
}

func (m *mockMediaStore) Upload(_ context.Context, bucket, name string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.uploads = append(m.uploads, upload{bucket: bucket, name: name, body: string(data)})
	return fmt.Sprintf("https://cdn.example.com/%s/%s", bucket, name), nil
}

var _ model.Mailer = &mockMailer{}

type mockMailer struct {
	mails []model.Mail
	err   error
}

func (m *mockMailer) Send(_ context.Context, mail model.Mail) error {
	if m.err != nil {
		return m.err
	}
	m.mails = append(m.mails, mail)
	return nil
}

var _ model.UserRepository = &mockUserRepository{}

type mockUserRepository struct {
	store map[uuid.UUID]*model.User
}

func (m *mockUserRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockUserRepository) Create(_ context.Context, user *model.User) error {
	for _, u := range m.store {
		if u.Email == user.Email {
			return model.ErrEmailTaken
		}
	}
	m.store[user.ID] = user
	return nil
}

func (m *mockUserRepository) Update(_ context.Context, user *model.User) error {
	m.store[user.ID] = user
	return nil
}

func (m *mockUserRepository) Find(_ context.Context, id uuid.UUID) (*model.User, error) {
	if user, ok := m.store[id]; ok {
		return user, nil
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.store {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) FindByVerificationToken(_ context.Context, token string) (*model.User, error) {
	for _, user := range m.store {
		if user.VerificationToken != "" && user.VerificationToken == token {
			return user, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) SetAdmin(_ context.Context, id uuid.UUID, admin bool) error {
	user, ok := m.store[id]
	if !ok {
		return model.ErrUserNotFound
	}
	user.IsAdmin = admin
	return nil
}

var _ model.SessionRepository = &mockSessionRepository{}

type mockSessionRepository struct {
	store map[string]*model.Session
}

func (m *mockSessionRepository) Create(_ context.Context, session *model.Session) error {
	m.store[session.Token] = session
	return nil
}

func (m *mockSessionRepository) Find(_ context.Context, token string) (*model.Session, error) {
	if session, ok := m.store[token]; ok {
		return session, nil
	}
	return nil, model.ErrSessionNotFound
}

func (m *mockSessionRepository) Delete(_ context.Context, token string) error {
	if _, ok := m.store[token]; !ok {
		return model.ErrSessionNotFound
	}
	delete(m.store, token)
	return nil
}

type mockPasswordManager struct{}

func (m *mockPasswordManager) Hash(pwd string) (string, error) {
	if pwd == "" {
		return "", errors.New("empty password")
	}
	return fmt.Sprintf("%s-hashed", pwd), nil
}

func (m *mockPasswordManager) Check(hashed, pwd string) (bool, error) {
	return hashed == fmt.Sprintf("%s-hashed", pwd), nil
}

func adminIdentity() *model.Identity {
	return &model.Identity{UserID: uuid.New(), Email: "owner@example.com", DisplayName: "Owner", IsAdmin: true}
}

func customerIdentity() *model.Identity {
	return &model.Identity{UserID: uuid.New(), Email: "ravi@example.com", DisplayName: "Ravi"}
}
