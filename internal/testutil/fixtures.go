package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// fixtureFiles is a tiny but referentially consistent copy of the nine
// dataset sources: two customers (one repeat buyer), three orders across two
// years, split payments on the first order, and items resolving to two
// sellers in two states.
var fixtureFiles = map[string]string{
	"olist_customers_dataset.csv": `customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state
c1,u1,01001,sao paulo,SP
c2,u1,01002,sao paulo,SP
c3,u2,20010,rio de janeiro,RJ
`,
	"olist_geolocation_dataset.csv": `geolocation_zip_code_prefix,geolocation_lat,geolocation_lng,geolocation_city,geolocation_state
01001,-23.55,-46.63,sao paulo,SP
20010,-22.90,-43.20,rio de janeiro,RJ
99999,not-a-number,-43.20,nowhere,RJ
`,
	"olist_order_items_dataset.csv": `order_id,order_item_id,product_id,seller_id,price,freight_value
o1,1,p1,s1,50.00,10.00
o1,2,p2,s2,30.00,5.00
o2,1,p1,s1,50.00,10.00
o3,1,p2,s2,30.00,15.00
`,
	"olist_order_payments_dataset.csv": `order_id,payment_sequential,payment_type,payment_value
o1,1,credit_card,50.00
o1,2,voucher,25.00
o2,1,boleto,60.00
o3,1,credit_card,45.00
`,
	"olist_order_reviews_dataset.csv": `review_id,order_id,review_score
r1,o1,5
r2,o2,4
r3,o3,5
`,
	"olist_orders_dataset.csv": `order_id,customer_id,order_status,order_purchase_timestamp,order_delivered_customer_date,order_estimated_delivery_date
o1,c1,delivered,2018-01-05 10:00:00,2018-01-10 12:00:00,2018-01-15 00:00:00
o2,c2,delivered,2017-10-03 10:00:00,2017-10-20 12:00:00,2017-10-15 00:00:00
o3,c3,shipped,2018-03-01 09:30:00,,2018-03-20 00:00:00
`,
	"olist_products_dataset.csv": `product_id,product_category_name,product_photos_qty
p1,informatica_acessorios,2
p2,beleza_saude,1
`,
	"olist_sellers_dataset.csv": `seller_id,seller_zip_code_prefix,seller_city,seller_state
s1,01001,sao paulo,SP
s2,20010,rio de janeiro,RJ
`,
	"product_category_name_translation.csv": `product_category_name,product_category_name_english
informatica_acessorios,computers_accessories
beleza_saude,health_beauty
`,
}

// WriteDatasetFixtures writes the full fixture dataset directory and returns
// its path.
func WriteDatasetFixtures(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range fixtureFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}
	return dir
}

// RemoveFixture deletes one fixture source, for missing-dataset tests.
func RemoveFixture(t *testing.T, dir, file string) {
	t.Helper()
	if err := os.Remove(filepath.Join(dir, file)); err != nil {
		t.Fatalf("failed to remove fixture %s: %v", file, err)
	}
}
