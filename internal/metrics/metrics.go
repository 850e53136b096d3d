package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_faces_detected_total",
		Help: "Faces returned by the detector across all frames.",
	})

	SpoofRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_spoof_rejections_total",
		Help: "Faces rejected by the liveness gate.",
	})

	Matches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_matches_total",
		Help: "Live faces matched to a registered student.",
	})

	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_attendance_marked_total",
		Help: "New attendance records created.",
	})
)
