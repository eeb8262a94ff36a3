package templates

// Fail renders an error page with the status code and a message.
const Fail = `
{{ define "content" }}
			<div class="ui middle very relaxed page grid">
				<div class="column">
					<h1>{{ .StatusCode }}: {{ .StatusText }}</h1>
					<div class="ui negative message">
						{{ .Message }}
					</div>
				</div>
			</div>
{{ end }}
`
