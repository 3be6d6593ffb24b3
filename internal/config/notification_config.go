package config

import "time"

type Notifications struct{}

var _ NotificationConfig = Notifications{}

func (Notifications) GetNotificationInterval() time.Duration {
	return GetDuration("WAREHOUSE_NOTIFICATION_INTERVAL", 50*time.Second)
}
