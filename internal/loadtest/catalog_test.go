package loadtest

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func TestStorefrontWeights(t *testing.T) {
	c := Storefront()

	want := map[string]int{
		"browse_home":             5,
		"view_product":            3,
		"view_cart":               2,
		"add_to_cart":             2,
		"change_currency":         1,
		"empty_cart":              1,
		"checkout_flow":           1,
		"logout":                  1,
		"access_static_resources": 1,
	}
	if len(c.Tasks) != len(want) {
		t.Fatalf("Expected %d tasks, got %d", len(want), len(c.Tasks))
	}
	for _, task := range c.Tasks {
		if want[task.Name] != task.Weight {
			t.Errorf("Task %s: expected weight %d, got %d", task.Name, want[task.Name], task.Weight)
		}
	}
	if c.TotalWeight() != 17 {
		t.Errorf("Expected total weight 17, got %d", c.TotalWeight())
	}
}

func TestPickFollowsWeights(t *testing.T) {
	c := Storefront()
	r := rand.New(rand.NewPCG(1, 2))

	counts := map[string]int{}
	const n = 17000
	for i := 0; i < n; i++ {
		counts[c.Pick(r).Name]++
	}

	// browse_home tem peso 5/17 (~5000), logout 1/17 (~1000)
	if counts["browse_home"] < 4500 || counts["browse_home"] > 5500 {
		t.Errorf("Unexpected browse_home count %d", counts["browse_home"])
	}
	if counts["logout"] < 800 || counts["logout"] > 1200 {
		t.Errorf("Unexpected logout count %d", counts["logout"])
	}
}

func TestPickEmptyCatalog(t *testing.T) {
	c := &Catalog{}
	if c.Pick(rand.New(rand.NewPCG(1, 1))) != nil {
		t.Error("Expected nil task for empty catalog")
	}
}

func findTask(t *testing.T, c *Catalog, name string) Task {
	t.Helper()
	for _, task := range c.Tasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("Task %s not found", name)
	return Task{}
}

func TestChecks(t *testing.T) {
	c := Storefront()

	tests := []struct {
		task   string
		step   int
		status int
		ok     bool
		reason string
	}{
		{"browse_home", 0, 200, true, ""},
		{"browse_home", 0, 0, false, "Connection failed - server may be down"},
		{"browse_home", 0, 503, false, "Home page failed with status 503"},
		{"view_product", 0, 500, false, "Product page returned 500 - server error"},
		{"view_product", 0, 404, false, "Product page failed with status 404"},
		{"view_cart", 0, 302, false, "Cart page failed with status 302"},
		{"add_to_cart", 0, 302, true, ""},
		{"add_to_cart", 0, 500, false, "Add to cart returned 500 - server error"},
		{"change_currency", 0, 400, false, "Currency change failed with status 400"},
		{"empty_cart", 0, 302, true, ""},
		{"checkout_flow", 0, 404, false, "Failed to add item for checkout: 404"},
		{"checkout_flow", 1, 500, false, "Checkout returned 500 - server error"},
		{"checkout_flow", 1, 302, false, "Checkout failed with status 302"},
		{"logout", 0, 302, true, ""},
		{"access_static_resources", 0, 404, false, "Static resource failed with status 404"},
	}

	for _, tt := range tests {
		step := findTask(t, c, tt.task).Steps[tt.step]
		ok, reason := step.Check(tt.status)
		if ok != tt.ok || reason != tt.reason {
			t.Errorf("%s[%d] status %d: got (%v, %q), want (%v, %q)",
				tt.task, tt.step, tt.status, ok, reason, tt.ok, tt.reason)
		}
	}

	ok, reason := c.OnStart[0].Check(0)
	if ok || reason != "Connection failed - server may be down" {
		t.Errorf("Unexpected warmup check result (%v, %q)", ok, reason)
	}
}

func TestRequestBuilders(t *testing.T) {
	c := Storefront()
	r := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 50; i++ {
		req := findTask(t, c, "add_to_cart").Steps[0].Build(r)
		if req.Method != http.MethodPost || req.Name != "POST /cart" {
			t.Fatalf("Unexpected request %+v", req)
		}
		q, err := strconv.Atoi(req.Form.Get("quantity"))
		if err != nil || q < 1 || q > 3 {
			t.Errorf("Quantity out of range: %q", req.Form.Get("quantity"))
		}

		product := findTask(t, c, "view_product").Steps[0].Build(r)
		if !strings.HasPrefix(product.Path, "/product/") || product.Name != "GET /product/:id" {
			t.Errorf("Unexpected product request %+v", product)
		}

		checkout := findTask(t, c, "checkout_flow").Steps[1].Build(r)
		zip, _ := strconv.Atoi(checkout.Form.Get("zip_code"))
		if zip < 10000 || zip > 99999 {
			t.Errorf("Zip out of range: %d", zip)
		}
		if !strings.HasSuffix(checkout.Form.Get("email"), "@example.com") {
			t.Errorf("Unexpected email %q", checkout.Form.Get("email"))
		}

		static := findTask(t, c, "access_static_resources").Steps[0].Build(r)
		if !strings.HasPrefix(static.Path, "/static/") {
			t.Errorf("Unexpected static path %s", static.Path)
		}
	}
}
