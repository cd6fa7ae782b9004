package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/service"
)

type Services struct {
	Catalog  service.CatalogService
	Cart     service.CartService
	Checkout service.CheckoutService
	Auth     service.AuthService
	Admin    service.AdminService
	Leads    service.LeadService
}

type Options struct {
	// SecureCookies marks the cart and session cookies Secure.
	SecureCookies bool
	// MaxUploadSize caps multipart request bodies, in bytes.
	MaxUploadSize int64
}

type Handler struct {
	services Services
	opts     Options
	decoder  *schema.Decoder
}

func Router(services Services, opts Options) http.Handler {
	if opts.MaxUploadSize == 0 {
		opts.MaxUploadSize = 10 << 20
	}
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	h := &Handler{services: services, opts: opts, decoder: decoder}

	r := mux.NewRouter()
	r.HandleFunc("/send-enquiry", h.sendEnquiry).Methods(http.MethodPost, http.MethodOptions)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)
	s.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/products/{slug}", h.getProduct).Methods(http.MethodGet)

	s.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	s.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	s.HandleFunc("/cart/items", h.addCartItem).Methods(http.MethodPost)
	s.HandleFunc("/cart/items/{productID}", h.updateCartItem).Methods(http.MethodPut)
	s.HandleFunc("/cart/items/{productID}", h.removeCartItem).Methods(http.MethodDelete)

	s.HandleFunc("/checkout", h.getCheckout).Methods(http.MethodGet)
	s.HandleFunc("/checkout/begin", h.beginCheckout).Methods(http.MethodPost)
	s.HandleFunc("/checkout/delivery", h.submitDelivery).Methods(http.MethodPost)
	s.HandleFunc("/checkout/paid", h.markPaid).Methods(http.MethodPost)
	s.HandleFunc("/checkout/payment", h.submitPayment).Methods(http.MethodPost)
	s.HandleFunc("/checkout/back", h.checkoutBack).Methods(http.MethodPost)
	s.HandleFunc("/checkout/restart", h.restartCheckout).Methods(http.MethodPost)

	s.HandleFunc("/auth/sign-up", h.signUp).Methods(http.MethodPost)
	s.HandleFunc("/auth/sign-in", h.signIn).Methods(http.MethodPost)
	s.HandleFunc("/auth/sign-out", h.signOut).Methods(http.MethodPost)
	s.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)
	s.HandleFunc("/auth/verify", h.verify).Methods(http.MethodGet)

	s.HandleFunc("/admin/products", h.adminListProducts).Methods(http.MethodGet)
	s.HandleFunc("/admin/products", h.adminCreateProduct).Methods(http.MethodPost)
	s.HandleFunc("/admin/products/{id}", h.adminUpdateProduct).Methods(http.MethodPut)
	s.HandleFunc("/admin/products/{id}", h.adminDeleteProduct).Methods(http.MethodDelete)
	s.HandleFunc("/admin/uploads", h.adminUploadImage).Methods(http.MethodPost)
	s.HandleFunc("/admin/orders", h.adminListOrders).Methods(http.MethodGet)
	s.HandleFunc("/admin/orders/{id}/confirm-payment", h.adminConfirmPayment).Methods(http.MethodPost)

	s.HandleFunc("/enquiry", h.enquiryLink).Methods(http.MethodPost)
	s.HandleFunc("/contact", h.contactLink).Methods(http.MethodPost)
	s.HandleFunc("/whatsapp", h.greetingLink).Methods(http.MethodGet)

	return logMiddleware(r)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
