package loadtest

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
)

// ProductIDs produtos do catálogo da loja demo
var ProductIDs = []string{
	"OLJCESPC7Z", // Sunglasses
	"66VCHSJNUP", // Tank Top
	"1YMWWN1N4O", // Watch
	"L9ECAV7KIM", // Loafers
	"2ZYFJ3GM2N", // Hairdryer
	"0PUK6V6EV0", // Candle Holder
	"LS4PSXUNUM", // Salt & Pepper Shakers
	"9SIQT8TOJO", // Bamboo Glass Jar
	"6E92ZMYYFZ", // Mug
}

// Currencies moedas aceitas pelo frontend
var Currencies = []string{"USD", "EUR", "CAD", "JPY", "GBP", "TRY"}

// StaticResources arquivos estáticos servidos pelo frontend
var StaticResources = []string{
	"/static/styles/styles.css",
	"/static/styles/cart.css",
	"/static/styles/order.css",
	"/static/favicon.ico",
	"/static/img/products/sunglasses.jpg",
	"/static/img/products/watch.jpg",
}

// Request requisição HTTP a ser executada. Name agrupa as estatísticas.
type Request struct {
	Method string
	Path   string
	Name   string
	Form   url.Values
}

// Check classifica a resposta: ok ou motivo da falha.
// Status 0 significa que não houve resposta (erro de conexão/timeout).
type Check func(status int) (bool, string)

// Step uma chamada HTTP de uma tarefa
type Step struct {
	Build func(r *rand.Rand) Request
	Check Check
}

// Task ação ponderada de um usuário. Os passos rodam em ordem e uma falha interrompe a tarefa.
type Task struct {
	Name   string
	Weight int
	Steps  []Step
}

// Catalog conjunto de tarefas de um usuário
type Catalog struct {
	OnStart []Step
	Tasks   []Task
}

// TotalWeight soma dos pesos
func (c *Catalog) TotalWeight() int {
	total := 0
	for _, t := range c.Tasks {
		if t.Weight > 0 {
			total += t.Weight
		}
	}
	return total
}

// Pick sorteia uma tarefa proporcionalmente ao peso
func (c *Catalog) Pick(r *rand.Rand) *Task {
	total := c.TotalWeight()
	if total == 0 {
		return nil
	}

	n := r.IntN(total)
	for i := range c.Tasks {
		if c.Tasks[i].Weight <= 0 {
			continue
		}
		if n < c.Tasks[i].Weight {
			return &c.Tasks[i]
		}
		n -= c.Tasks[i].Weight
	}
	return nil
}

// expect monta um Check: sucesso para os status aceitos, mensagens específicas para
// alguns status e "<label> failed with status N" para o resto.
func expect(label string, special map[int]string, accepted ...int) Check {
	return func(status int) (bool, string) {
		for _, s := range accepted {
			if status == s {
				return true, ""
			}
		}
		if msg, ok := special[status]; ok {
			return false, msg
		}
		return false, fmt.Sprintf("%s failed with status %d", label, status)
	}
}

func get(path, name string) Request {
	return Request{Method: http.MethodGet, Path: path, Name: name}
}

func post(path, name string, form url.Values) Request {
	return Request{Method: http.MethodPost, Path: path, Name: name, Form: form}
}

func choice(r *rand.Rand, items []string) string {
	return items[r.IntN(len(items))]
}

// between inteiro uniforme em [lo, hi]
func between(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

// Storefront catálogo de navegação da loja demo (online boutique)
func Storefront() *Catalog {
	homeCheck := expect("Home page", map[int]string{
		0: "Connection failed - server may be down",
	}, http.StatusOK)

	return &Catalog{
		OnStart: []Step{{
			Build: func(*rand.Rand) Request { return get("/", "GET / (warmup)") },
			Check: homeCheck,
		}},
		Tasks: []Task{
			{
				Name:   "browse_home",
				Weight: 5,
				Steps: []Step{{
					Build: func(*rand.Rand) Request { return get("/", "GET /") },
					Check: homeCheck,
				}},
			},
			{
				Name:   "view_product",
				Weight: 3,
				Steps: []Step{{
					Build: func(r *rand.Rand) Request {
						return get("/product/"+choice(r, ProductIDs), "GET /product/:id")
					},
					Check: expect("Product page", map[int]string{
						500: "Product page returned 500 - server error",
					}, http.StatusOK),
				}},
			},
			{
				Name:   "view_cart",
				Weight: 2,
				Steps: []Step{{
					Build: func(*rand.Rand) Request { return get("/cart", "GET /cart") },
					Check: expect("Cart page", nil, http.StatusOK),
				}},
			},
			{
				Name:   "add_to_cart",
				Weight: 2,
				Steps: []Step{{
					Build: func(r *rand.Rand) Request {
						return post("/cart", "POST /cart", url.Values{
							"product_id": {choice(r, ProductIDs)},
							"quantity":   {strconv.Itoa(between(r, 1, 3))},
						})
					},
					Check: expect("Add to cart", map[int]string{
						500: "Add to cart returned 500 - server error",
					}, http.StatusOK, http.StatusFound),
				}},
			},
			{
				Name:   "change_currency",
				Weight: 1,
				Steps: []Step{{
					Build: func(r *rand.Rand) Request {
						return post("/setCurrency", "POST /setCurrency", url.Values{
							"currency_code": {choice(r, Currencies)},
						})
					},
					Check: expect("Currency change", nil, http.StatusOK, http.StatusFound),
				}},
			},
			{
				Name:   "empty_cart",
				Weight: 1,
				Steps: []Step{{
					Build: func(*rand.Rand) Request { return post("/cart/empty", "POST /cart/empty", nil) },
					Check: expect("Empty cart", nil, http.StatusOK, http.StatusFound),
				}},
			},
			{
				Name:   "checkout_flow",
				Weight: 1,
				Steps: []Step{
					{
						Build: func(r *rand.Rand) Request {
							return post("/cart", "POST /cart (checkout prep)", url.Values{
								"product_id": {choice(r, ProductIDs)},
								"quantity":   {"1"},
							})
						},
						Check: func(status int) (bool, string) {
							if status == http.StatusOK || status == http.StatusFound {
								return true, ""
							}
							return false, fmt.Sprintf("Failed to add item for checkout: %d", status)
						},
					},
					{
						Build: func(r *rand.Rand) Request {
							return post("/cart/checkout", "POST /cart/checkout", checkoutForm(r))
						},
						Check: expect("Checkout", map[int]string{
							500: "Checkout returned 500 - server error",
						}, http.StatusOK),
					},
				},
			},
			{
				Name:   "logout",
				Weight: 1,
				Steps: []Step{{
					Build: func(*rand.Rand) Request { return get("/logout", "GET /logout") },
					Check: expect("Logout", nil, http.StatusOK, http.StatusFound),
				}},
			},
			{
				Name:   "access_static_resources",
				Weight: 1,
				Steps: []Step{{
					Build: func(r *rand.Rand) Request { return get(choice(r, StaticResources), "GET /static/*") },
					Check: expect("Static resource", nil, http.StatusOK),
				}},
			},
		},
	}
}

func checkoutForm(r *rand.Rand) url.Values {
	return url.Values{
		"email":                        {fmt.Sprintf("user%d@example.com", between(r, 1000, 9999))},
		"street_address":               {fmt.Sprintf("%d Main St", between(r, 100, 999))},
		"zip_code":                     {strconv.Itoa(between(r, 10000, 99999))},
		"city":                         {"San Francisco"},
		"state":                        {"CA"},
		"country":                      {"United States"},
		"credit_card_number":           {"4111111111111111"},
		"credit_card_expiration_month": {"12"},
		"credit_card_expiration_year":  {"2025"},
		"credit_card_cvv":              {"123"},
	}
}
