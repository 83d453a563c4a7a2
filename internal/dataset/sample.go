package dataset

// SampleRepeat is how often each built-in sample appears in SampleData
const SampleRepeat = 10

var phishingSamples = []Sample{
	{
		Subject: "URGENT: Verify Your Account Immediately!",
		Content: "Dear Customer, Your account has been suspended. Click here to verify: http://bit.ly/suspicious-link. Act now or your account will be deleted!",
		From:    "support@suspicious-domain.com",
		To:      "user@email.com",
		Label:   1,
	},
	{
		Subject: "You Won a Prize! Claim Now!",
		Content: "Congratulations! You have won $1000. Click below to claim your prize: http://tinyurl.com/fake-prize. Limited time offer!",
		From:    "noreply@fake-lottery.com",
		To:      "user@email.com",
		Label:   1,
	},
	{
		Subject: "Password Reset Required",
		Content: "We detected unusual activity on your account. Please verify your identity by clicking here: http://192.168.1.1/fake-login. Your password will expire in 24 hours!",
		From:    "security@phishing-site.com",
		To:      "user@email.com",
		Label:   1,
	},
	{
		Subject: "Update Your Payment Information",
		Content: `Your payment method expired. Update now: <a href="http://fake-payment-site.com">Click Here</a>. Your account will be locked if not updated immediately!`,
		From:    "billing@scam-service.com",
		To:      "user@email.com",
		Label:   1,
	},
	{
		Subject: "Urgent: Account Verification Needed",
		Content: "Your account requires immediate verification. Please confirm your details at: http://bit.ly/verify-now. Failure to verify will result in account suspension.",
		From:    "admin@suspicious-service.com",
		To:      "user@email.com",
		Label:   1,
	},
}

var legitimateSamples = []Sample{
	{
		Subject: "Meeting scheduled for tomorrow",
		Content: "Hi, just confirming our meeting tomorrow at 2 PM. See you then. Best regards.",
		From:    "colleague@company.com",
		To:      "user@email.com",
	},
	{
		Subject: "Monthly Report",
		Content: "Please find attached the monthly report. Let me know if you have any questions.",
		From:    "manager@company.com",
		To:      "user@email.com",
	},
	{
		Subject: "Newsletter - January 2024",
		Content: "Here is your monthly newsletter with company updates and news. Visit our website for more information.",
		From:    "newsletter@company.com",
		To:      "user@email.com",
	},
	{
		Subject: "Project Update",
		Content: "The project is progressing well. We have completed phase 1. Next steps are outlined in the attached document.",
		From:    "team@company.com",
		To:      "user@email.com",
	},
	{
		Subject: "Thank you for your inquiry",
		Content: "Thank you for contacting us. We have received your message and will respond within 24 hours.",
		From:    "support@company.com",
		To:      "user@email.com",
	},
}

// SampleData returns the built-in dataset: every phishing sample repeated
// SampleRepeat times, then every legitimate sample repeated the same way
func SampleData() []Sample {
	out := make([]Sample, 0, (len(phishingSamples)+len(legitimateSamples))*SampleRepeat)
	for i := 0; i < SampleRepeat; i++ {
		out = append(out, phishingSamples...)
	}
	for i := 0; i < SampleRepeat; i++ {
		out = append(out, legitimateSamples...)
	}
	return out
}
