package tables

// Default returns the built-in tables for the New Jersey snapshot.
func Default() *Tables {
	t := &Tables{
		Cuisines: []string{
			"American", "Italian", "Chinese", "Japanese", "Mexican", "Thai",
			"Indian", "Korean", "Mediterranean", "Greek", "Vietnamese", "French",
			"Spanish", "Middle Eastern", "Pizza", "Burgers", "Seafood", "Sushi",
			"Barbecue", "Sandwiches", "Breakfast", "Desserts", "Vegan", "Halal",
			"Caribbean", "Soul Food", "Turkish", "Peruvian", "Brazilian", "Ethiopian",
			"Taiwanese", "Filipino",
		},
		Attributes: []AttributeDef{
			{Label: "BYOB", Param: "byob", Keys: []string{"BYOB", "BYOBCorkage"}},
			{Label: "Delivery", Param: "delivery", Keys: []string{"RestaurantsDelivery"}},
			{Label: "Outdoor Seating", Param: "outdoor", Keys: []string{"OutdoorSeating"}},
			{Label: "Kid-Friendly", Param: "kid_friendly", Keys: []string{"GoodForKids"}},
			{Label: "Late Night", Param: "late_night", Keys: []string{"HappyHour"}},
			{Label: "Free WiFi", Param: "wifi", Keys: []string{"WiFi"}},
			{Label: "Reservations", Param: "reservations", Keys: []string{"RestaurantsReservations"}},
		},
		PermissiveKeys: []string{"WiFi", "BYOBCorkage"},
		SynonymGroups: [][]string{
			{"Pizza", "Italian"},
			{"Sushi", "Japanese", "Korean"},
			{"Chinese", "Taiwanese"},
			{"Thai", "Vietnamese", "Filipino"},
			{"Mediterranean", "Greek", "Middle Eastern", "Turkish", "Halal"},
			{"Mexican", "Spanish", "Peruvian", "Brazilian"},
			{"American", "Burgers", "Sandwiches", "Barbecue"},
			{"Caribbean", "Soul Food"},
			{"Breakfast", "Desserts"},
		},
		// Camden County holds most of the snapshot's dense suburban areas.
		RegionCaps: map[string]int{
			"Camden County":     1,
			"Burlington County": 2,
			"Hudson County":     2,
		},
		DefaultRegionCap: 2,
		CityRegions: map[string]string{
			"Cherry Hill":    "Camden County",
			"Haddonfield":    "Camden County",
			"Voorhees":       "Camden County",
			"Collingswood":   "Camden County",
			"Camden":         "Camden County",
			"Haddon Heights": "Camden County",
			"Pennsauken":     "Camden County",
			"Berlin":         "Camden County",
			"Marlton":        "Burlington County",
			"Mount Laurel":   "Burlington County",
			"Moorestown":     "Burlington County",
			"Medford":        "Burlington County",
			"Cinnaminson":    "Burlington County",
			"Willingboro":    "Burlington County",
			"Glassboro":      "Gloucester County",
			"Sewell":         "Gloucester County",
			"Woodbury":       "Gloucester County",
			"Mullica Hill":   "Gloucester County",
			"Atlantic City":  "Atlantic County",
			"Egg Harbor":     "Atlantic County",
			"Hoboken":        "Hudson County",
			"Jersey City":    "Hudson County",
			"Newark":         "Essex County",
			"Princeton":      "Mercer County",
			"Trenton":        "Mercer County",
			"Hamilton":       "Mercer County",
		},
		CuisineDefaults: map[string]ConceptDefaults{
			"Pizza": {PriceTier: 1, NoiseLevel: "average", Flags: map[string]int{
				"has_delivery": 1, "has_takeout": 1, "good_for_kids": 1, "good_for_groups": 1,
			}},
			"Italian": {PriceTier: 2, NoiseLevel: "average", Flags: map[string]int{
				"has_reservations": 1, "has_alcohol": 1, "good_for_groups": 1,
			}},
			"Japanese": {PriceTier: 2, NoiseLevel: "quiet", Flags: map[string]int{
				"has_takeout": 1, "has_reservations": 1,
			}},
			"Sushi": {PriceTier: 2, NoiseLevel: "quiet", Flags: map[string]int{
				"has_takeout": 1, "has_reservations": 1,
			}},
			"Chinese": {PriceTier: 1, NoiseLevel: "average", Flags: map[string]int{
				"has_delivery": 1, "has_takeout": 1, "good_for_groups": 1,
			}},
			"Mexican": {PriceTier: 1, NoiseLevel: "average", Flags: map[string]int{
				"has_takeout": 1, "has_alcohol": 1, "good_for_kids": 1,
			}},
			"American": {PriceTier: 2, NoiseLevel: "average", Flags: map[string]int{
				"has_takeout": 1, "has_alcohol": 1, "has_tv": 1, "good_for_kids": 1, "good_for_groups": 1,
			}},
			"Burgers": {PriceTier: 1, NoiseLevel: "average", Flags: map[string]int{
				"has_takeout": 1, "has_delivery": 1, "good_for_kids": 1, "has_tv": 1,
			}},
			"Breakfast": {PriceTier: 1, NoiseLevel: "average", Flags: map[string]int{
				"has_takeout": 1, "good_for_kids": 1,
			}},
			"French": {PriceTier: 3, NoiseLevel: "quiet", Flags: map[string]int{
				"has_reservations": 1, "has_alcohol": 1,
			}},
			"Seafood": {PriceTier: 3, NoiseLevel: "average", Flags: map[string]int{
				"has_reservations": 1, "has_alcohol": 1, "has_outdoor_seating": 1,
			}},
			"Thai": {PriceTier: 2, NoiseLevel: "quiet", Flags: map[string]int{
				"has_takeout": 1, "has_delivery": 1,
			}},
			"Indian": {PriceTier: 2, NoiseLevel: "average", Flags: map[string]int{
				"has_takeout": 1, "has_delivery": 1, "good_for_groups": 1,
			}},
		},
	}
	t.prepare()
	return t
}
