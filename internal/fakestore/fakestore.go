// Package fakestore is an in-memory implementation of the confectionery
// store's REST contract. It backs the mock-api development server and the
// end-to-end tests; it is not a product server.
package fakestore

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/macieszak/confectionery-storefront/internal/domain/product"
)

// CartAdd records one successful add-to-cart call.
type CartAdd struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

// FavoriteAdd records one successful add-to-favorites call.
type FavoriteAdd struct {
	UserID    int64
	ProductID int64
}

// Store holds the fixture catalog and mutation log.
type Store struct {
	mu        sync.Mutex
	products  []product.Product
	images    map[string][]byte
	cartAdds  []CartAdd
	favorites []FavoriteAdd
	failNext  int
}

// New returns a Store seeded with the default confectionery catalog.
func New() *Store {
	s := &Store{images: make(map[string][]byte)}
	for _, p := range seedCatalog() {
		s.AddProduct(p, []byte("png-bytes-" + p.ImageName))
	}
	return s
}

// NewEmpty returns a Store with no products; tests seed their own fixtures.
func NewEmpty() *Store {
	return &Store{images: make(map[string][]byte)}
}

func seedCatalog() []product.Product {
	mk := func(id int64, name string, cat product.Category, price string, desc, img string) product.Product {
		return product.Product{
			ID:          id,
			Name:        name,
			Category:    cat,
			Price:       decimal.RequireFromString(price),
			Description: desc,
			ImageName:   img,
		}
	}
	return []product.Product{
		mk(1, "Raspberry Dream Cake", product.CategoryCakes, "45.00", "Sponge layers with raspberry mousse.", "raspberry_dream.png"),
		mk(2, "Honey Cheesecake", product.CategoryCakes, "32.50", "Baked cheesecake with wildflower honey.", "honey_cheesecake.png"),
		mk(3, "Vanilla Crescent Cookies", product.CategoryCookies, "12.00", "Crumbly crescents dusted with vanilla sugar.", "vanilla_crescents.png"),
		mk(4, "Chocolate Chip Cookies", product.CategoryCookies, "9.50", "Classic cookies with dark chocolate chunks.", "choc_chip.png"),
		mk(5, "Gingerbread Hearts", product.CategoryCookies, "14.90", "Spiced gingerbread glazed with icing.", "gingerbread.png"),
		mk(6, "Macaron Box", product.CategoryOther, "28.00", "Twelve assorted macarons.", "macaron_box.png"),
	}
}

// AddProduct adds a product and its image bytes to the fixture catalog.
func (s *Store) AddProduct(p product.Product, image []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, p)
	if p.ImageName != "" {
		s.images[p.ImageName] = image
	}
}

// FailNext makes the next n catalog requests answer 500, for failure-path
// tests.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// CartAdds returns the recorded successful cart mutations.
func (s *Store) CartAdds() []CartAdd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CartAdd(nil), s.cartAdds...)
}

// FavoriteAdds returns the recorded successful favorite mutations.
func (s *Store) FavoriteAdds() []FavoriteAdd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FavoriteAdd(nil), s.favorites...)
}

// Handler returns the API surface mounted under /api, matching the paths the
// real backend serves.
func (s *Store) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/products", s.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/filter", s.filterProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/sorted", s.sortedProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/search", s.searchProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/img/{imageName}", s.productImage).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", s.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}/products/{productID:[0-9]+}/{quantity:[0-9]+}", s.addToCart).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID:[0-9]+}/favorites", s.addFavorite).Methods(http.MethodPost)

	return r
}

// failing consumes one injected failure if armed. Callers hold s.mu.
func (s *Store) failing() bool {
	if s.failNext > 0 {
		s.failNext--
		return true
	}
	return false
}

func (s *Store) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.failing() {
		s.mu.Unlock()
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	out := append([]product.Product(nil), s.products...)
	s.mu.Unlock()
	writeProducts(w, out)
}

func (s *Store) filterProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	minPrice := parsePrice(r.URL.Query().Get("minPrice"))
	maxPrice := parsePrice(r.URL.Query().Get("maxPrice"))

	s.mu.Lock()
	if s.failing() {
		s.mu.Unlock()
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	var out []product.Product
	for _, p := range s.products {
		if category != "" && string(p.Category) != category {
			continue
		}
		if minPrice != nil && p.Price.LessThan(*minPrice) {
			continue
		}
		if maxPrice != nil && p.Price.GreaterThan(*maxPrice) {
			continue
		}
		out = append(out, p)
	}
	s.mu.Unlock()
	writeProducts(w, out)
}

func (s *Store) sortedProducts(w http.ResponseWriter, r *http.Request) {
	order := r.URL.Query().Get("sort")

	s.mu.Lock()
	if s.failing() {
		s.mu.Unlock()
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	out := append([]product.Product(nil), s.products...)
	s.mu.Unlock()

	switch order {
	case "cheapest":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case "expensive":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	}
	writeProducts(w, out)
}

func (s *Store) searchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("query"))

	s.mu.Lock()
	if s.failing() {
		s.mu.Unlock()
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	var out []product.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	writeProducts(w, out)
}

func (s *Store) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	for _, p := range s.products {
		if p.ID == id {
			writeJSON(w, toRecord(p))
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Store) productImage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["imageName"]

	s.mu.Lock()
	data, ok := s.images[name]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Store) addToCart(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	userID, _ := strconv.ParseInt(vars["userID"], 10, 64)
	productID, _ := strconv.ParseInt(vars["productID"], 10, 64)
	quantity, _ := strconv.Atoi(vars["quantity"])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	s.cartAdds = append(s.cartAdds, CartAdd{UserID: userID, ProductID: productID, Quantity: quantity})
	w.WriteHeader(http.StatusOK)
}

func (s *Store) addFavorite(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	userID, _ := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	productID, err := strconv.ParseInt(r.PostFormValue("favoriteProductId"), 10, 64)
	if err != nil || productID <= 0 {
		http.Error(w, "missing favoriteProductId", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites = append(s.favorites, FavoriteAdd{UserID: userID, ProductID: productID})
	w.WriteHeader(http.StatusOK)
}

func authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && len(auth) > len("Bearer ")
}

func parsePrice(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// productRecord is the wire shape the real backend serves.
type productRecord struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       struct {
		Name string `json:"name"`
	} `json:"image"`
}

func toRecord(p product.Product) productRecord {
	rec := productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Category:    string(p.Category),
		Price:       p.Price.InexactFloat64(),
		Description: p.Description,
	}
	rec.Image.Name = p.ImageName
	return rec
}

func writeProducts(w http.ResponseWriter, list []product.Product) {
	records := make([]productRecord, len(list))
	for i, p := range list {
		records[i] = toRecord(p)
	}
	writeJSON(w, records)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
