package web

import "html/template"

const pageHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} - bizdash</title>
<style>
body { font-family: Arial, sans-serif; margin: 2rem auto; max-width: 960px; color: #1d1d1f; }
h1 { font-size: 1.6rem; margin-bottom: 1rem; }
nav { margin-bottom: 2rem; }
nav a { margin-right: 1rem; color: #0a66c2; text-decoration: none; }
table { width: 100%; border-collapse: collapse; margin-bottom: 1rem; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #ddd; }
form.inline { display: inline; }
label { display: block; margin-bottom: 0.4rem; font-weight: 600; }
input, select { padding: 0.4rem; margin-bottom: 0.8rem; }
button { padding: 0.5rem 1rem; background: #0a66c2; color: #fff; border: none; cursor: pointer; }
.error { background: #fdecea; color: #b3261e; padding: 0.6rem; margin-bottom: 1rem; }
.notice { background: #e6f4ea; color: #1e7b34; padding: 0.6rem; margin-bottom: 1rem; }
.cards { display: flex; gap: 1rem; margin-bottom: 1.5rem; }
.card { flex: 1; border: 1px solid #ddd; padding: 1rem; }
.card .value { font-size: 1.4rem; font-weight: 700; }
.muted { color: #6e6e73; font-size: 0.85rem; }
</style>
</head>
<body>
`

const pageNav = `<nav>
<a href="/">Dashboard</a>
<a href="/sales">Sales</a>
<a href="/customers">Customers</a>
<a href="/security">Security</a>
<a href="/settings">Settings</a>
<form class="inline" method="post" action="/logout"><button>Log out</button></form>
</nav>
`

const pageFoot = `</body>
</html>
`

const flashBlock = `{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
`

var loginTemplate = template.Must(template.New("login").Parse(pageHead + `
<h1>Sign in</h1>
` + flashBlock + `
<form method="post" action="/login">
<label>Email</label>
<input type="email" name="email" value="{{.Email}}" required>
<label>Password</label>
<input type="password" name="password" required>
<button>Sign in</button>
</form>
<p>{{range .Providers}}<a href="/oauth/{{.}}/start">Continue with {{.}}</a> {{end}}</p>
<p class="muted"><a href="/register">Create an account</a> · <a href="/password/forgot">Forgot password</a></p>
` + pageFoot))

var registerTemplate = template.Must(template.New("register").Parse(pageHead + `
<h1>Create account</h1>
` + flashBlock + `
<form method="post" action="/register">
<label>Name</label>
<input type="text" name="name" value="{{.Name}}" required>
<label>Company</label>
<input type="text" name="company" value="{{.Company}}">
<label>Email</label>
<input type="email" name="email" value="{{.Email}}" required>
<label>Password</label>
<input type="password" name="password" required>
<button>Register</button>
</form>
<p class="muted"><a href="/login">Back to sign in</a></p>
` + pageFoot))

var forgotTemplate = template.Must(template.New("forgot").Parse(pageHead + `
<h1>Reset password</h1>
` + flashBlock + `
<form method="post" action="/password/forgot">
<label>Email</label>
<input type="email" name="email" required>
<button>Send reset link</button>
</form>
` + pageFoot))

var resetTemplate = template.Must(template.New("reset").Parse(pageHead + `
<h1>Choose a new password</h1>
` + flashBlock + `
<form method="post" action="/password/reset">
<input type="hidden" name="token" value="{{.Token}}">
<label>New password</label>
<input type="password" name="password" required>
<button>Reset password</button>
</form>
` + pageFoot))

var dashboardTemplate = template.Must(template.New("dashboard").Parse(pageHead + pageNav + `
<h1>Dashboard</h1>
` + flashBlock + `
<div class="cards">
<div class="card"><div class="muted">Revenue</div><div class="value">{{printf "%.2f" .Stats.TotalRevenue}}</div></div>
<div class="card"><div class="muted">Orders</div><div class="value">{{.Stats.TotalOrders}}</div></div>
<div class="card"><div class="muted">Customers</div><div class="value">{{.Stats.TotalCustomers}}</div></div>
<div class="card"><div class="muted">Avg order</div><div class="value">{{printf "%.2f" .Stats.AvgOrderValue}}</div></div>
</div>
<h2>Last {{.Window}}</h2>
<table>
<tr><th>Date</th><th>Revenue</th><th>Orders</th></tr>
{{range .Stats.Series}}<tr><td>{{.Date}}</td><td>{{printf "%.2f" .Revenue}}</td><td>{{.Orders}}</td></tr>{{end}}
</table>
` + pageFoot))

var salesTemplate = template.Must(template.New("sales").Parse(pageHead + pageNav + `
<h1>Sales ledger</h1>
` + flashBlock + `
<form method="get" action="/sales">
<input type="text" name="search" placeholder="Search" value="{{.Query.Search}}">
<select name="status">
<option value="">Any status</option>
<option value="pending" {{if eq .Query.Status "pending"}}selected{{end}}>Pending</option>
<option value="paid" {{if eq .Query.Status "paid"}}selected{{end}}>Paid</option>
<option value="refunded" {{if eq .Query.Status "refunded"}}selected{{end}}>Refunded</option>
</select>
<select name="sort">
<option value="-createdAt" {{if eq .Query.Sort "-createdAt"}}selected{{end}}>Newest first</option>
<option value="createdAt" {{if eq .Query.Sort "createdAt"}}selected{{end}}>Oldest first</option>
<option value="-amount" {{if eq .Query.Sort "-amount"}}selected{{end}}>Amount, high to low</option>
<option value="amount" {{if eq .Query.Sort "amount"}}selected{{end}}>Amount, low to high</option>
</select>
<button>Apply</button>
</form>
<table>
<tr><th>Date</th><th>Customer</th><th>Product</th><th>Amount</th><th>Status</th></tr>
{{range .Page.Sales}}<tr>
<td>{{.CreatedAt.Format "2006-01-02"}}</td>
<td><a href="/customers/{{.CustomerID}}">{{.Customer}}</a></td>
<td>{{.Product}}</td><td>{{printf "%.2f" .Amount}}</td><td>{{.Status}}</td>
</tr>{{end}}
</table>
<p class="muted">Page {{.Page.Page}} of {{.Page.TotalPages}} ({{.Page.Total}} rows, {{printf "%.2f" .Page.AmountSum}} total)
{{if .PrevPage}}<a href="{{.PrevPage}}">Previous</a>{{end}}
{{if .NextPage}}<a href="{{.NextPage}}">Next</a>{{end}}
</p>
<h2>Record a sale</h2>
<form method="post" action="/sales">
<input type="text" name="customerId" placeholder="Customer ID" required>
<input type="text" name="product" placeholder="Product" required>
<input type="text" name="amount" placeholder="Amount" required>
<button>Add</button>
</form>
` + pageFoot))

var customersTemplate = template.Must(template.New("customers").Parse(pageHead + pageNav + `
<h1>Customers</h1>
` + flashBlock + `
<form method="get" action="/customers">
<input type="text" name="search" placeholder="Search" value="{{.Query.Search}}">
<button>Search</button>
</form>
<table>
<tr><th>Name</th><th>Email</th><th>Company</th><th>Orders</th><th>Spend</th></tr>
{{range .Page.Customers}}<tr>
<td><a href="/customers/{{.ID}}">{{.Name}}</a></td>
<td>{{.Email}}</td><td>{{.Company}}</td><td>{{.Orders}}</td><td>{{printf "%.2f" .Spend}}</td>
</tr>{{end}}
</table>
<p class="muted">Page {{.Page.Page}} ({{.Page.Total}} customers)
{{if .PrevPage}}<a href="{{.PrevPage}}">Previous</a>{{end}}
{{if .NextPage}}<a href="{{.NextPage}}">Next</a>{{end}}
</p>
` + pageFoot))

var customerTemplate = template.Must(template.New("customer").Parse(pageHead + pageNav + `
<h1>{{.Customer.Name}}</h1>
<table>
<tr><th>Email</th><td>{{.Customer.Email}}</td></tr>
<tr><th>Company</th><td>{{.Customer.Company}}</td></tr>
<tr><th>Phone</th><td>{{.Customer.Phone}}</td></tr>
<tr><th>Orders</th><td>{{.Customer.Orders}}</td></tr>
<tr><th>Lifetime spend</th><td>{{printf "%.2f" .Customer.Spend}}</td></tr>
<tr><th>Since</th><td>{{.Customer.CreatedAt.Format "2006-01-02"}}</td></tr>
</table>
` + pageFoot))

var securityTemplate = template.Must(template.New("security").Parse(pageHead + pageNav + `
<h1>Security log</h1>
<p class="muted">Recorded locally on this dashboard host. Advisory only: the backend keeps the authoritative audit trail.</p>
<table>
<tr><th>Time</th><th>Action</th><th>IP</th><th>Detail</th></tr>
{{range .Entries}}<tr>
<td>{{.Time.Format "2006-01-02 15:04:05"}}</td>
<td>{{.Action}}</td><td>{{.IP}}</td>
<td>{{range $k, $v := .Detail}}{{$k}}={{$v}} {{end}}</td>
</tr>{{end}}
</table>
` + pageFoot))

var settingsTemplate = template.Must(template.New("settings").Parse(pageHead + pageNav + `
<h1>Settings</h1>
` + flashBlock + `
<p>Signed in as {{.User.Name}} ({{.User.Email}})</p>
<h2>Change password</h2>
<form method="post" action="/settings/password">
<label>Current password</label>
<input type="password" name="current" required>
<label>New password</label>
<input type="password" name="new" required>
<button>Change password</button>
</form>
` + pageFoot))
