package templates

// Form wraps a rendered form with its title, description and the errors of
// the last submission.
const Form = `
{{ define "content" }}
			<div class="formwork">
				<div class="ui middle very relaxed page grid">
					<div class="column">
						<h3 class="ui top attached header">
							{{ .Title }}
						</h3>
						<div class="ui attached segment">
							{{ if .Description }}
								<p class="description">{{ .Description }}</p>
							{{ end }}
							{{ if .Errors }}
								<div class="ui negative message">
									<ul class="list">
									{{ range .Errors }}
										<li>{{ . }}</li>
									{{ end }}
									</ul>
								</div>
							{{ end }}
							{{ range $name, $errs := .FieldErrors }}
								<div class="ui warning message">
									<b>{{ $name }}</b>: {{ range $errs }}{{ . }} {{ end }}
								</div>
							{{ end }}
							{{ .Form }}
						</div>
					</div>
				</div>
			</div>
{{ end }}
`

// Submission shows the stored values and the processing result of a single
// submission.
const Submission = `
{{ define "content" }}
			<div class="formwork">
				<div class="ui middle very relaxed page grid">
					<div class="column">
						<h3 class="ui top attached header">
							Submission S{{ .ID }} (<a href="/log?form={{ .FormID }}">{{ .FormID }}</a>)
						</h3>
						<div class="ui attached segment">
							<table class="ui definition table">
								<tbody>
								{{ range $key, $value := .ValueMap }}
									<tr><td>{{ $key }}</td><td>{{ $value }}</td></tr>
								{{ end }}
								</tbody>
							</table>
							<div>
								Submitted {{ .SubmitTime.Format "15:04:05 Mon Jan 2 2006" }}
							</div>
							<div>
								{{ if .IsFinished }}
									Finished {{ .EndTime.Format "15:04:05 Mon Jan 2 2006" }}
								{{ else }}
									In queue
								{{ end }}
							</div>
							{{ range .Messages }}
								<div class="message">{{ . }}</div>
							{{ end }}
							{{ if .Error }}
								<div class="ui negative message">{{ .Error }}</div>
							{{ end }}
						</div>
					</div>
				</div>
			</div>
{{ end }}
`
