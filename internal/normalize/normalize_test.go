package normalize

import "testing"

func TestTitle_StripsStoreNoise(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"God of War Ragnarök - Digital Deluxe Edition", "God of War Ragnarök"},
		{"Returnal - PS5 Version", "Returnal"},
		{"Horizon Forbidden West™", "Horizon Forbidden West"},
		{"Marvel's Spider-Man 2", "Marvel's Spider-Man 2"},
		{"Ghost of Tsushima: Director's Cut Edition", "Ghost of Tsushima"},
		{"Ghost of Tsushima – Director’s Cut Edition", "Ghost of Tsushima"},
		{"Gears 5: Game of the Year Edition", "Gears 5"},
		{"Death Stranding - GOTY Edition", "Death Stranding"},
		{"Ratchet & Clank - PlayStation 5 Edition", "Ratchet & Clank"},
		{"Ratchet & Clank - PlayStation5", "Ratchet & Clank"},
		{"Astro Bot - Full Game", "Astro Bot"},
		{"Gran Turismo® 7 - PS4 & PS5", "Gran Turismo 7 - PS4 & PS5"},
		{"Uncharted: Legacy of Thieves Collection -", "Uncharted: Legacy of Thieves Collection"},
		{"Elden Ring - Deluxe Edition - PS5", "Elden Ring"},
		{"Elden Ring - PS5 - Deluxe Edition", "Elden Ring"},
		{"Hogwarts Legacy - collector's edition", "Hogwarts Legacy"},
		{"  Stray  ", "Stray"},
		{"", ""},
		{"Deluxe Edition", "Deluxe Edition"},
		{"The Last of Us™ Part I", "The Last of Us Part I"},
	}
	for _, tc := range cases {
		if got := Title(tc.in); got != tc.want {
			t.Errorf("Title(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTitle_Idempotent(t *testing.T) {
	samples := []string{
		"God of War Ragnarök - Digital Deluxe Edition",
		"Returnal - PS5 Version",
		"Horizon Forbidden West™",
		"A - B - C -",
		"Foo: Gold Edition: PS4 Edition - Full Game",
		"Foo - Full Game - PS5 Version - Ultimate Edition",
		"étude©",
		"::",
		"- - -",
		"Title – ",
		"Sackboy™: A Big Adventure – PS4 & PS5",
		"Final Fantasy VII Remake Intergrade",
	}
	for _, s := range samples {
		once := Title(s)
		if twice := Title(once); twice != once {
			t.Errorf("not idempotent for %q: once=%q twice=%q", s, once, twice)
		}
	}
}

func TestTitle_ComposesUnicode(t *testing.T) {
	// "ö" as o + combining diaeresis.
	got := Title("Ragnaro\u0308k")
	if got != "Ragnar\u00f6k" {
		t.Fatalf("expected NFC output, got %q", got)
	}
}
