package templates

// LogView template for displaying the submission log in a list.
const LogView = `
{{define "content"}}
	<div class="repository file list">
		<div class="ui container">
			<p id="repo-desc">
			<span class="description has-emoji">Submissions</span>
			</p>
			<table id="submissions-table" class="ui unstackable fixed single line table">
				<tbody>
					{{range $sub := .}}
						<tr>
							<td class="name two wide">S{{$sub.ID}}</td>
							<td class="name text bold four wide"><a href="/log/{{$sub.ID}}">{{$sub.FormID}}</a></td>
							<td class="name four wide">{{$sub.SubmitTime}}</td>
							<td class="name four wide">{{$sub.EndTime}}</td>
							<td class="name four wide">{{if $sub.Error}}{{$sub.Error}}{{end}}</td>
						</tr>
					{{end}}
				</tbody>
			</table>
		</div>
	</div>
{{end}}
`
