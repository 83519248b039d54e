package upstream

// defaultStations is the fixed set of near-real-time gauging stations this
// engine synchronizes. The catalog holds many more, but only these publish
// the datasets the download API serves.
var defaultStations = []int{
	10378500, 10392400, 11491400, 11494000, 11494510, 11495900,
	11497500, 11497550, 11500400, 11500500, 11502550, 11503500,
	11504103, 11504109, 11504120, 11510000, 13214000, 13215000,
	13216500, 13217500, 13269450, 13273000, 13275105, 13275300,
	13281200, 13282550, 13317850, 13318060, 13318210, 13318920,
	13325500, 13329100, 13329765, 13330000, 13330300, 13330500,
	13331450, 14010000, 14010800, 14021000, 14022500, 14023500,
	14024300, 14025000, 14026000, 14029900, 14031050, 14031600,
	14032000, 14032400, 14039500, 14054000, 14056500, 14060000,
	14063000, 14064500, 14070920, 14070980, 14073520, 14074900,
	14075000, 14076020, 14076100, 14079800, 14080500, 14081500,
	14082550, 14083400, 14085700, 14087300, 14088500, 14095250,
	14095255, 14104125, 14104190, 14104700, 14104800, 14105545,
	14105550, 14192500, 14193000, 14202510, 14202850, 14306820,
	14306900, 14320700, 14327120, 14327122, 14327137, 14327300,
	14335200, 14335230, 14335235, 14335250, 14335300, 14335500,
	14336700, 14337000, 14340800, 14341610, 14342500, 14343000,
	14346700, 14346900, 14347800, 14348080, 14348150, 14348400,
	14350900, 14352000, 14352001, 14354100, 14354950, 14355875,
	14357000, 14357503, 14358610, 14358680, 14358725, 14358750,
	14358800, 14360500, 14363450, 14365500, 14368300, 14375200,
	14400200,
}

// DefaultStations returns a copy of the built-in station list.
func DefaultStations() []int {
	out := make([]int, len(defaultStations))
	copy(out, defaultStations)
	return out
}
