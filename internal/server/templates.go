package server

import "html/template"

const pageStyle = `
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f1f8e9; }
        .container { max-width: 640px; margin: 0 auto; background: white; padding: 24px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #33691e; text-align: center; }
        label { display: block; margin-top: 12px; font-weight: bold; }
        input, select { width: 100%; padding: 8px; margin-top: 4px; box-sizing: border-box; }
        button, .button { display: inline-block; margin-top: 20px; padding: 10px 20px; background: #558b2f; color: white; border: none; border-radius: 4px; text-decoration: none; }
        .languages { text-align: right; }
        .error { color: #c62828; margin-top: 12px; }
        .result { font-size: 1.2em; margin: 8px 0; }
        .risk-High { color: #c62828; }
        .risk-Moderate { color: #ef6c00; }
        .risk-Low { color: #2e7d32; }
    </style>`

const indexTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Text.Title}}</title>` + pageStyle + `
</head>
<body>
<div class="container">
    <div class="languages">
        {{range .Languages}}<a href="/?lang={{.Code}}">{{.Name}}</a> {{end}}
    </div>
    <h1>{{.Text.Header}}</h1>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    <form method="POST" action="/predict">
        <input type="hidden" name="lang" value="{{.Lang}}">

        <label for="crop_select">{{.Text.Inputs.Crop}}</label>
        <select id="crop_select" name="crop_select">
            {{range .Crops}}<option value="{{.}}">{{.}}</option>
            {{end}}<option value="Other">Other</option>
        </select>
        <input type="text" name="crop" placeholder="Other">

        <label for="soil_select">{{.Text.Inputs.Soil}}</label>
        <select id="soil_select" name="soil_select">
            {{range .Soils}}<option value="{{.}}">{{.}}</option>
            {{end}}<option value="Other">Other</option>
        </select>
        <input type="text" name="soil" placeholder="Other">

        <label for="location">{{.Text.Inputs.Location}}</label>
        <input type="text" id="location" name="location" required>

        <label for="acres">{{.Text.Inputs.Acres}}</label>
        <input type="number" id="acres" name="acres" step="0.01" min="0.01" required>

        <button type="submit">{{.Text.SubmitButton}}</button>
    </form>
</div>
</body>
</html>`

const resultTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Text.Title}}</title>` + pageStyle + `
</head>
<body>
<div class="container">
    <h1>{{.Text.ResultLabel}}</h1>
    <p class="result">🌱 <strong>{{.Rec.Crop}}</strong></p>
    <p class="result">{{.Text.YieldLabel}}: <strong>{{printf "%.2f" .Rec.YieldTons}}</strong></p>
    <p class="result">{{.Text.RiskLabel}}: <strong class="risk-{{.Rec.Risk}}">{{.Rec.Risk}}</strong></p>
    <p><small>{{.Rec.Model}}</small></p>
    <a class="button" href="/?lang={{.Lang}}">{{.Text.BackButton}}</a>
</div>
</body>
</html>`

type pages struct {
	index  *template.Template
	result *template.Template
}

func parsePages() pages {
	return pages{
		index:  template.Must(template.New("index").Parse(indexTemplate)),
		result: template.Must(template.New("result").Parse(resultTemplate)),
	}
}
