package config

// defaultRegistry carries the community roster the deployment ships with.
// Real deployments override it wholesale from the config file.
func defaultRegistry() RegistryConfig {
	return RegistryConfig{
		Cats: []EntityConfig{
			{Name: "Microwave", Nicknames: []string{"Professor Sprinkles", "Buddy", "Apollo", "Mike", "Michael", "Micro"}},
			{Name: "Twix"},
			{Name: "Ford F-150"},
			{Name: "Eggs"},
			{Name: "Eraser", Nicknames: []string{"Bacon", "Tuxedo"}},
			{Name: "Snickers", Nicknames: []string{"Snicks"}},
			{Name: "Hershey"},
			{Name: "Pencil"},
			{Name: "Melvin"},
			{Name: "Alaska"},
			{Name: "Laufey"},
			{Name: "Faye"},
			{Name: "Lionel"},
			{Name: "Snowball"},
			{Name: "Marley"},
			{Name: "Bobbie"},
			{Name: "Porkchop"},
			{Name: "Rolo"},
			{Name: "Citlali"},
			{Name: "Paquini", Nicknames: []string{"Panini"}},
			{Name: "Glockenspiel", Nicknames: []string{"Glock"}},
			{Name: "Tlacuilo"},
			{Name: "Garfield", Nicknames: []string{"Tito FluffyButt", "Tito"}},
			{Name: "Aphrodite", Nicknames: []string{"Dittie"}},
			{Name: "Tang"},
			{Name: "Angel"},
			{Name: "Friga"},
			{Name: "Ginger"},
			{Name: "Pepper"},
			{Name: "Scraggle"},
			{Name: "Noir"},
			{Name: "Zee"},
			{Name: "Stove", Nicknames: []string{"Squonk"}},
			{Name: "Scringle", Nicknames: []string{"Blorbo"}},
			{Name: "Dingus"},
			{Name: "Winston"},
			{Name: "Radar"},
			{Name: "Gregory"},
			{Name: "Rubber"},
			{Name: "Bruno"},
			{Name: "Boots"},
			{Name: "Princess"},
			{Name: "Nefarious", Nicknames: []string{"Double Cheeseburger"}},
			{Name: "Houdini"},
			{Name: "Freya"},
			{Name: "Thor"},
			{Name: "Odin"},
			{Name: "Piggy", Nicknames: []string{"Piggy toes"}},
			{Name: "Tommy"},
			{Name: "Callie"},
			{Name: "Creamsicle"},
			{Name: "Cassie"},
			{Name: "Ernie"},
			{Name: "Toblerone"},
			{Name: "Waffles"},
			{Name: "Kinder"},
			{Name: "Enchilada"},
			{Name: "Robin"},
			{Name: "Musketeer"},
			{Name: "Eezard", Nicknames: []string{"Lizard", "Anole"}},
			{Name: "Ooni"},
			{Name: "Leaflet"},
			{Name: "Maddox"},
			{Name: "Pallas"},
			{Name: "Honda"},
			{Name: "Bandit"},
			{Name: "Petal"},
			{Name: "Chimichanga"},
			{Name: "Butter"},
			{Name: "Cloudy", Nicknames: []string{"Cirrus"}},
			{Name: "Meatball", Nicknames: []string{"Nimbus"}},
			{Name: "Itztli"},
		},
		Stations: []EntityConfig{
			{Name: "West Hall", Nicknames: []string{"west", "hall"}},
			{Name: "Maintenance", Nicknames: []string{"maint"}},
			{Name: "Business", Nicknames: []string{"coba"}},
			{Name: "The Greens", Nicknames: []string{"greens", "green", "grink", "grinks"}},
			{Name: "HOP", Nicknames: []string{"pecan", "thwop", "thop", "heights"}},
			{Name: "Lot 50", Nicknames: []string{"lot50", "l50", "lot"}},
			{Name: "Mary Kay and Zen", Nicknames: []string{"mkz", "zen", "mary kay", "mary", "kay"}},
			{Name: "Microwave", Nicknames: []string{"mike", "mikey", "micro", "old man", "michael"}},
			{Name: "Snickers", Nicknames: []string{"snicks"}},
		},
		StationStopwords: []string{"the", "a", "an", "station", "lot", "hall"},
	}
}
