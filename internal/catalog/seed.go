package catalog

import "github.com/shopmesh/shopmesh/internal/model"

func boolPtr(b bool) *bool { return &b }

// Seeded returns a catalog pre-populated with the demo stores and items.
func Seeded() *Service {
	s := New([]model.Store{
		{ID: 1, Name: "Tech Store Downtown", Location: "Downtown", Type: model.CategoryGeneral},
		{ID: 2, Name: "City Pharmacy", Location: "Midtown", Type: model.CategoryPharmacy},
		{ID: 3, Name: "HealthPlus Pharmacy", Location: "Uptown", Type: model.CategoryPharmacy},
	})
	s.entries = []model.Product{
		{
			ID: 1, Name: "Laptop", Price: 999.99, Description: "High-performance laptop",
			Stock: 10, StoreID: 1, Category: model.CategoryGeneral,
		},
		{
			ID: 2, Name: "Ibuprofen", Price: 12.99, Description: "Pain reliever",
			Stock: 100, StoreID: 2, Category: model.CategoryPharmacy,
			DrugName: "Ibuprofen", BrandName: "Advil", GenericEquivalent: "Ibuprofen",
			PrescriptionRequired: boolPtr(false),
		},
		{
			ID: 3, Name: "Ibuprofen", Price: 9.99, Description: "Generic pain reliever",
			Stock: 150, StoreID: 3, Category: model.CategoryPharmacy,
			DrugName: "Ibuprofen", BrandName: "Generic", GenericEquivalent: "Ibuprofen",
			PrescriptionRequired: boolPtr(false),
		},
		{
			ID: 4, Name: "Amoxicillin", Price: 24.99, Description: "Antibiotic",
			Stock: 50, StoreID: 2, Category: model.CategoryPharmacy,
			DrugName: "Amoxicillin", BrandName: "Amoxil", GenericEquivalent: "Amoxicillin",
			PrescriptionRequired: boolPtr(true),
		},
	}
	s.seq.Skip(4)
	return s
}
