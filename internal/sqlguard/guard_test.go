package sqlguard

import (
	"errors"
	"testing"
)

var shopTables = []string{"order", "order_item", "product", "category", "comment", "brand", "status"}

func TestCheck_Allows(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"simple", "SELECT name FROM product", "SELECT name FROM product"},
		{"trailing semicolons", "SELECT 1 FROM product;; ", "SELECT 1 FROM product"},
		{"quoted reserved table", "SELECT o.id FROM `order` o WHERE o.id = 12", ""},
		{"double quoted", `SELECT * FROM "order" AS o`, ""},
		{"joins", "SELECT p.name, c.name FROM product p LEFT JOIN category c ON c.id = p.category_id INNER JOIN brand b ON b.id = p.brand_id", ""},
		{"comma join", "SELECT * FROM product p, category c WHERE p.category_id = c.id", ""},
		{"subquery", "SELECT name FROM product WHERE id IN (SELECT product_id FROM order_item)", ""},
		{"derived table", "SELECT t.n FROM (SELECT COUNT(*) AS n FROM comment) t", ""},
		{"cte", "WITH top AS (SELECT product_id, SUM(qty) s FROM order_item GROUP BY product_id) SELECT * FROM top ORDER BY s DESC LIMIT 5", ""},
		{"extract from", "SELECT EXTRACT(YEAR FROM created_at) FROM `order`", ""},
		{"replace function", "SELECT REPLACE(name, 'Pro', '') FROM product", ""},
		{"keywords in literal", "SELECT * FROM product WHERE name = 'DROP TABLE; DELETE'", ""},
		{"comment", "SELECT name -- DROP everything\nFROM product /* delete */", ""},
		{"case insensitive tables", "select * from PRODUCT", ""},
		{"vietnamese literal", "SELECT * FROM status WHERE name = 'Đang giao'", ""},
		{"dual", "SELECT NOW() FROM DUAL", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Check(tc.query, shopTables)
			if err != nil {
				t.Fatalf("Check(%q) = %v, want ok", tc.query, err)
			}
			if tc.want != "" && got != tc.want {
				t.Errorf("Check(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestCheck_Rejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		query string
	}{
		{"empty", "  ;"},
		{"update", "UPDATE product SET price = 0"},
		{"delete", "DELETE FROM `order`"},
		{"drop", "DROP TABLE product"},
		{"stacked", "SELECT * FROM product; DROP TABLE product"},
		{"cte write", "WITH x AS (DELETE FROM product RETURNING id) SELECT * FROM x"},
		{"select into", "SELECT * INTO OUTFILE '/tmp/p' FROM product"},
		{"for update", "SELECT * FROM product FOR UPDATE"},
		{"unlisted table", "SELECT email, password FROM customer"},
		{"unlisted in join", "SELECT * FROM `order` o JOIN customer c ON c.id = o.customer_id"},
		{"unlisted in comma list", "SELECT * FROM product, customer"},
		{"unlisted in subquery", "SELECT * FROM product WHERE id IN (SELECT id FROM customer)"},
		{"qualified", "SELECT * FROM information_schema.tables"},
		{"qualified quoted", "SELECT * FROM `mysql`.`user`"},
		{"table function", "SELECT * FROM generate_series(1, 10)"},
		{"sleep", "SELECT SLEEP(10) FROM product"},
		{"unterminated string", "SELECT * FROM product WHERE name = 'x"},
		{"unterminated comment", "SELECT * FROM product /* x"},
		{"show", "SHOW TABLES"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Check(tc.query, shopTables)
			var v *Violation
			if !errors.As(err, &v) {
				t.Fatalf("Check(%q) err = %v, want *Violation", tc.query, err)
			}
			if v.Reason == "" {
				t.Error("violation must carry a reason")
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"SELECT 1", "SELECT 1"},
		{"```sql\nSELECT name FROM product\n```", "SELECT name FROM product"},
		{"Here you go:\n```\nSELECT 2\n```\nThanks", "SELECT 2"},
		{"  ```sql SELECT 3 ``` ", "SELECT 3"},
	}
	for _, tc := range cases {
		if got := StripFences(tc.in); got != tc.want {
			t.Errorf("StripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
