package testutil

import (
	"github.com/roach88/odatacriteria/internal/mapping"
)

// ShopTypes returns the catalog types of the shop fixture schema:
//
//	Entity (unmapped base) <- Customer, Order
//	Customer -> Address -> Country, Customer.Orders []Order,
//	Customer.Home (component Location), Customer.Attributes (dynamic)
//	Order -> Customer, Order.Lines []OrderLine -> Product
//	Animal (unmapped base) <- Dog, Person.Pet is typed Animal
//	Vehicle <- Car (redeclares Name) <- Truck
func ShopTypes() []mapping.Type {
	return []mapping.Type{
		{ID: "Entity", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
		}},
		{ID: "Customer", Kind: mapping.KindEntity, Base: "Entity", Members: []mapping.Member{
			{Name: "Name", Type: mapping.TypeString, Column: "name"},
			{Name: "Email", Type: mapping.TypeString, Column: "email"},
			{Name: "Address", Type: "Address", Column: "address_id"},
			{Name: "Home", Type: "Location", Column: "home"},
			{Name: "Orders", Type: mapping.CollectionOf("Order"), Inverse: "customer_id"},
			{Name: "Attributes", Type: mapping.TypeDynamic, Column: "attr"},
		}},
		{ID: "Address", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Street", Type: mapping.TypeString, Column: "street"},
			{Name: "City", Type: mapping.TypeString, Column: "city"},
			{Name: "Country", Type: "Country", Column: "country_id"},
		}},
		{ID: "Country", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Name", Type: mapping.TypeString, Column: "name"},
			{Name: "Code", Type: mapping.TypeString, Column: "code"},
		}},
		{ID: "Location", Kind: mapping.KindComponent, Members: []mapping.Member{
			{Name: "Street", Type: mapping.TypeString, Column: "street"},
			{Name: "Country", Type: "Country", Column: "country_id"},
		}},
		{ID: "Order", Kind: mapping.KindEntity, Base: "Entity", Members: []mapping.Member{
			{Name: "Number", Type: mapping.TypeString, Column: "number"},
			{Name: "Total", Type: mapping.TypeDecimal, Column: "total"},
			{Name: "Status", Type: mapping.TypeString, Column: "status"},
			{Name: "Customer", Type: "Customer", Column: "customer_id"},
			{Name: "Lines", Type: mapping.CollectionOf("OrderLine"), Inverse: "order_id"},
			{Name: "internalCode", Type: mapping.TypeString, Kind: mapping.MemberField, Column: "internal_code"},
		}},
		{ID: "OrderLine", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Quantity", Type: mapping.TypeInt32, Column: "quantity"},
			{Name: "Price", Type: mapping.TypeDecimal, Column: "price"},
			{Name: "Product", Type: "Product", Column: "product_id"},
		}},
		{ID: "Product", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Name", Type: mapping.TypeString, Column: "name"},
			{Name: "Tags", Type: mapping.CollectionOf("Tag"), Inverse: "product_id"},
		}},
		{ID: "Tag", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Label", Type: mapping.TypeString, Column: "label"},
		}},
		{ID: "Animal", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Name", Type: mapping.TypeString, Column: "name"},
		}},
		{ID: "Dog", Kind: mapping.KindEntity, Base: "Animal", Members: []mapping.Member{
			{Name: "Breed", Type: mapping.TypeString, Column: "breed"},
		}},
		{ID: "Person", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Name", Type: mapping.TypeString, Column: "name"},
			{Name: "Pet", Type: "Animal", Column: "pet_id"},
		}},
		{ID: "Vehicle", Kind: mapping.KindEntity, Members: []mapping.Member{
			{Name: "Id", Type: mapping.TypeInt64, Column: "id"},
			{Name: "Name", Type: mapping.TypeString, Column: "name"},
		}},
		{ID: "Car", Kind: mapping.KindEntity, Base: "Vehicle", Members: []mapping.Member{
			{Name: "Name", Type: mapping.TypeString, Column: "car_name"},
		}},
		{ID: "Truck", Kind: mapping.KindEntity, Base: "Car", Members: []mapping.Member{
			{Name: "Load", Type: mapping.TypeInt32, Column: "load"},
		}},
	}
}

// ShopClasses returns the mapped classes of the shop fixture schema.
func ShopClasses() []mapping.MappedClass {
	return []mapping.MappedClass{
		{Type: "Customer", Table: "customers", Dynamic: []mapping.DynamicProperty{
			{Component: "Attributes", Name: "Color", Type: mapping.TypeString},
			{Component: "Attributes", Name: "Size", Type: mapping.TypeInt32},
		}},
		{Type: "Address", Table: "addresses"},
		{Type: "Country", Table: "countries"},
		{Type: "Order", Table: "orders"},
		{Type: "OrderLine", Table: "order_lines"},
		{Type: "Product", Table: "products"},
		{Type: "Tag", Table: "tags"},
		{Type: "Dog", Table: "dogs"},
		{Type: "Person", Table: "people"},
		{Type: "Vehicle", Table: "vehicles"},
		{Type: "Car", Table: "cars"},
		{Type: "Truck", Table: "trucks"},
	}
}

// ShopStore builds the shop fixture store. With withCat a second mapped
// subtype of Animal is added, which makes Animal an ambiguous base.
func ShopStore(withCat bool) (*mapping.Store, error) {
	types := ShopTypes()
	classes := ShopClasses()
	if withCat {
		types = append(types, mapping.Type{ID: "Cat", Kind: mapping.KindEntity, Base: "Animal", Members: []mapping.Member{
			{Name: "Lives", Type: mapping.TypeInt32, Column: "lives"},
		}})
		classes = append(classes, mapping.MappedClass{Type: "Cat", Table: "cats"})
	}

	catalog, err := mapping.NewCatalog(types...)
	if err != nil {
		return nil, err
	}
	return mapping.Build(catalog, classes)
}

// MustShopStore is ShopStore for test setup; it panics on error.
func MustShopStore(withCat bool) *mapping.Store {
	s, err := ShopStore(withCat)
	if err != nil {
		panic(err)
	}
	return s
}
