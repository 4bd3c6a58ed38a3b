// Package domain models city sensor readings and the pure functions that turn
// a raw tabular batch into a clean, queryable dataset.
//
// # Data Source
//
// Each city publishes one static CSV-like file produced by mobile sensor
// units (İKA, "insansız kara aracı"). Files come from several generators and
// are not consistent: headers may be Turkish or English, delimiters vary, and
// coordinates are sometimes swapped, missing, or far outside the city.
//
// # Header Conventions
//
// Native-language datasets use:
//
//	ZamanDamgasi, Ika_ID, Enlem, Boylam, Yukseklik_m, Hedef_Konum,
//	PM2.5_ug_m3, PM10_ug_m3, CO_ppm, NO2_ppb, SO2_ppb, O3_ppb, VOC_ppb,
//	Sicaklik_C, Bagil_Nem_Yuzde, Ses_Seviyesi_dB, Isik_Seviyesi_lux,
//	Titresim_g, ManyetikAlan_X_uT, ManyetikAlan_Y_uT, ManyetikAlan_Z_uT,
//	Radyasyon_uSv_h
//
// English datasets use the canonical keys directly (Temperature_C,
// Relative_Humidity_Percent, Sound_Level_dB, ...). Short forms such as PM25,
// Temperature or Humidity also appear. All of them are declared once in the
// alias [Registry]; every lookup goes through [Registry.Resolve].
//
// Timestamps are usually RFC 3339 ("2023-10-28T00:00:00Z") but any format
// understood by dateparse is accepted. Zone-less timestamps are read in the
// configured location.
//
// # Coordinate Repair
//
//	NaN                       → city center
//	lat/lng swapped           → swapped back, then re-validated
//	outside world bounds      → city center
//	outside the city box      → uniform jitter of ±0.1° around the center
//
// See [RepairCoordinates].
//
// # Health Thresholds
//
// Alert thresholds are static, expert-set limits (WHO/EPA inspired) and do
// not depend on observed statistics. Sound and light have stricter night
// rules:
//
//	Sound_Level_dB:  22:00–06:00  warning > 40 dB, danger > 50 dB
//	Light_Level_lux: 21:00–05:00  warning > 500 lux, danger > 1000 lux
//
// Anomalies are statistical instead: |z| > 2 against the hourly distribution
// of the same sensor, falling back to the overall distribution.
package domain
