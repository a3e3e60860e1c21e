package middlewares

var Responses = struct {
	FailedValidations    *NewRM
	InternalServerError  *NewRM
	InvalidRoles         *NewRM
	UserNotFound         *NewRM
	PatientNotFound      *NewRM
	PaymentNotFound      *NewRM
	ReceptionNotFound    *NewRM
	ServicesNotFound     *NewRM
	ServiceAlreadyPaid   *NewRM
	AmountMismatch       *NewRM
	InvalidPaymentMethod *NewRM
	MissingIdentifier    *NewRM
	ProviderUnavailable  *NewRM
}{
	FailedValidations: &NewRM{
		Language.English:    "Failed field validations",
		Language.Vietnamese: "Dữ liệu không hợp lệ",
	},
	InternalServerError: &NewRM{
		Language.English:    "Internal server error",
		Language.Vietnamese: "Lỗi hệ thống",
	},
	InvalidRoles: &NewRM{
		Language.English:    "Invalid roles",
		Language.Vietnamese: "Bạn không có quyền thực hiện thao tác này",
	},
	UserNotFound: &NewRM{
		Language.English:    "User not found",
		Language.Vietnamese: "Không tìm thấy người dùng",
	},
	PatientNotFound: &NewRM{
		Language.English:    "Patient not found",
		Language.Vietnamese: "Không tìm thấy bệnh nhân",
	},
	PaymentNotFound: &NewRM{
		Language.English:    "Payment not found",
		Language.Vietnamese: "Không tìm thấy thanh toán",
	},
	ReceptionNotFound: &NewRM{
		Language.English:    "No open reception for the patient",
		Language.Vietnamese: "Bệnh nhân chưa có phiếu tiếp nhận",
	},
	ServicesNotFound: &NewRM{
		Language.English:    "Not all services were found",
		Language.Vietnamese: "Không tìm thấy đầy đủ dịch vụ",
	},
	ServiceAlreadyPaid: &NewRM{
		Language.English:    "Service is already paid",
		Language.Vietnamese: "Dịch vụ đã được thanh toán",
	},
	AmountMismatch: &NewRM{
		Language.English:    "Amount does not match the selected services",
		Language.Vietnamese: "Số tiền không khớp với dịch vụ đã chọn",
	},
	InvalidPaymentMethod: &NewRM{
		Language.English:    "Invalid payment method",
		Language.Vietnamese: "Phương thức thanh toán không hợp lệ",
	},
	MissingIdentifier: &NewRM{
		Language.English:    "A payment id or payment contract id is required",
		Language.Vietnamese: "Cần mã thanh toán hoặc mã hợp đồng thanh toán",
	},
	ProviderUnavailable: &NewRM{
		Language.English:    "Payment provider is unavailable",
		Language.Vietnamese: "Cổng thanh toán không phản hồi",
	},
}

type NewRM map[string]string

var Language = struct {
	English    string
	Vietnamese string
}{
	English:    "en",
	Vietnamese: "vi",
}

var LanguageMap = map[string]string{
	Language.English:    "English",
	Language.Vietnamese: "Vietnamese",
}
