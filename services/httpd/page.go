package httpd

import (
	"bytes"
	"html/template"

	"envhttpd/types"
)

// page is the sensor report. Layout and number formats are fixed: two
// decimals for the BME280 temperature, four for everything else.
var page = template.Must(template.New("page").Parse(
	`<html><body>` +
		`<h1>Sensor Data</h1>` +
		`<h2>BME280</h2>` +
		`<p>Raw Temperature: {{.Combined.Raw.Temperature}}</p>` +
		`<p>Raw Pressure: {{.Combined.Raw.Pressure}}</p>` +
		`<p>Raw Humidity: {{.Combined.Raw.Humidity}}</p>` +
		`<p>Compensated Temperature: {{printf "%.2f" .Combined.Value.TemperatureC}}&deg;C</p>` +
		`<p>Compensated Pressure: {{printf "%.4f" .Combined.Value.PressureHPa}} hPa</p>` +
		`<p>Compensated Humidity: {{printf "%.4f" .Combined.Value.HumidityPct}}%</p>` +
		`<h2>TMP117</h2>` +
		`<p>Raw Temperature: {{.Precision.Raw}}</p>` +
		`<p>Compensated Temperature: {{printf "%.4f" .Precision.TemperatureC}}&deg;C</p>` +
		`</body></html>`))

// render produces the complete page or an error; nothing is written to the
// client until rendering has succeeded.
func render(s types.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
