package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		commandsReceivedTotal,
		usersRegisteredTotal,
		trackingFailuresTotal,
		donationSendsTotal,
	)
}

// Donation delivery modes.
const (
	DonationPhoto  = "photo"
	DonationText   = "text"
	DonationFailed = "failed"
)

var (
	commandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_received_total",
			Help: "Recognised bot commands by name.",
		},
		[]string{"command"},
	)

	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new users tracked.",
		},
	)

	trackingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_failures_total",
			Help: "Interaction tracking writes that failed and were swallowed.",
		},
	)

	donationSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_sends_total",
			Help: "Donation messages by delivery mode (photo/text/failed).",
		},
		[]string{"mode"},
	)
)

func IncCommand(command string) {
	commandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncUsersRegistered() {
	usersRegisteredTotal.Inc()
}

func IncTrackingFailure() {
	trackingFailuresTotal.Inc()
}

func IncDonationSend(mode string) {
	donationSendsTotal.WithLabelValues(norm(mode)).Inc()
}
