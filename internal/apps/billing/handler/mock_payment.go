package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"otp-gateway/internal/apps/billing/models"

	"github.com/gin-gonic/gin"
)

var mockPaymentPage = template.Must(template.New("mock-payment").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Mock Payment - {{.PlanTitle}} Plan</title>
    <style>
        body { font-family: Arial; max-width: 400px; margin: 50px auto; padding: 20px; }
        .card { border: 1px solid #ddd; border-radius: 8px; padding: 20px; }
        button { padding: 10px 20px; margin: 10px; border-radius: 5px; cursor: pointer; }
        .success { background: #28a745; color: white; border: none; }
        .cancel { background: #dc3545; color: white; border: none; }
    </style>
</head>
<body>
    <div class="card">
        <h2>Mock Payment</h2>
        <p><strong>Phone:</strong> {{.Phone}}</p>
        <p><strong>Plan:</strong> {{.PlanTitle}}</p>
        <p><strong>Session ID:</strong> {{.SessionID}}</p>
        <hr>
        <p>This is a mock payment page for development.</p>
        <button class="success" onclick="simulateSuccess()">Simulate Success</button>
        <button class="cancel" onclick="simulateCancel()">Simulate Cancel</button>
    </div>
    <script>
        function simulateSuccess() {
            fetch({{.WebhookURL}}, {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({
                    session_id: {{.SessionID}},
                    phone_number: {{.Phone}},
                    plan_type: {{.Plan}},
                    status: 'success'
                })
            })
            .then(function (response) {
                if (!response.ok) { throw new Error('HTTP ' + response.status); }
                return response.json();
            })
            .then(function () {
                alert('Payment simulated successfully!');
                var next = {{.SuccessURL}};
                if (next) { window.location.href = next; }
            })
            .catch(function (error) { alert('Error simulating payment: ' + error.message); });
        }
        function simulateCancel() {
            alert('Payment cancelled');
            var next = {{.CancelURL}};
            if (next) { window.location.href = next; }
        }
    </script>
</body>
</html>
`))

type mockPaymentView struct {
	SessionID  string
	Phone      string
	Plan       string
	PlanTitle  string
	WebhookURL string
	SuccessURL string
	CancelURL  string
}

// MockPayment handles GET /mock-payment
func (h *BillingHandler) MockPayment(c *gin.Context) {
	var query models.MockPaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	successURL := query.SuccessURL
	if successURL != "" {
		successURL += "?session_id=" + query.SessionID
	}

	var buf bytes.Buffer
	if err := mockPaymentPage.Execute(&buf, mockPaymentView{
		SessionID:  query.SessionID,
		Phone:      query.Phone,
		Plan:       query.Plan,
		PlanTitle:  title(query.Plan),
		WebhookURL: strings.TrimRight(h.backendOrigin, "/") + "/webhook-mock",
		SuccessURL: successURL,
		CancelURL:  query.CancelURL,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
