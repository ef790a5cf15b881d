package taxonomy

// standardContentTypes returns the four slots shared by every subcategory.
func standardContentTypes() []ContentType {
	return []ContentType{
		{
			ID:          Images,
			Title:       "الصور",
			Description: "مكتبة صور تعليمية للحركات والمهارات الأساسية",
			Icon:        "image",
			Color:       "bg-green-100",
			ButtonColor: "bg-green-500",
		},
		{
			ID:          Videos,
			Title:       "الفيديوهات",
			Description: "مقاطع فيديو تعليمية وتدريبية للمهارات الحركية",
			Icon:        "video",
			Color:       "bg-blue-100",
			ButtonColor: "bg-blue-500",
		},
		{
			ID:          Files,
			Title:       "الملفات",
			Description: "خطط دراسية وأنشطة تعليمية قابلة للتحميل",
			Icon:        "file",
			Color:       "bg-purple-100",
			ButtonColor: "bg-purple-500",
		},
		{
			ID:          Talented,
			Title:       "الموهوبين",
			Description: "برامج خاصة لاكتشاف ورعاية المواهب الرياضية المبكرة",
			Icon:        "star",
			Color:       "bg-yellow-100",
			ButtonColor: "bg-yellow-500",
		},
	}
}

var stageOrder = []string{"primary"}

var stages = map[string]Stage{
	"primary": {
		ID:          "primary",
		Name:        "المرحلة الابتدائية",
		Title:       "المرحلة الابتدائية",
		Description: "اكتشف محتوى التربية البدنية للمرحلة الابتدائية",
		Icon:        "book",
		Color:       "bg-white",
		ButtonColor: "bg-[#206549]",
		ImageURL:    "https://i.imgur.com/sJbg6xJ.png",
		Features: []string{
			"المهارات الحركية الأساسية",
			"الألعاب التعليمية الممتعة",
			"التمارين البدنية البسيطة",
			"تنمية الثقة بالنفس",
			"التعاون والعمل الجماعي",
		},
		Categories: []Category{
			{
				ID:          "early-childhood",
				Title:       "مرحلة الطفولة المبكرة",
				Description: "محتوى تعليمي مخصص للصفوف الأولية من الأول إلى الثالث",
				ImageURL:    "https://i.imgur.com/ddVwLrc.png",
				Features: []string{
					"تطوير المهارات الحركية الأساسية",
					"الألعاب التعليمية التفاعلية",
					"أنشطة تنمية الثقة بالنفس",
				},
				Color:       "bg-[#761cc3]/10",
				ButtonColor: "bg-[#761cc3]",
				Subcategories: []Subcategory{
					{
						ID:           "active-play",
						Title:        "اللعب النشط",
						Description:  "مجموعة متنوعة من الأنشطة الحركية والألعاب التفاعلية",
						ImageURL:     "https://i.imgur.com/05hZgET.png",
						Features:     []string{"ألعاب حركية", "أنشطة تفاعلية", "تمارين نشطة"},
						Color:        "bg-[#27AE60]/10",
						ButtonColor:  "bg-[#27AE60]",
						ContentTypes: standardContentTypes(),
					},
					{
						ID:           "body-management",
						Title:        "إدارة الجسم",
						Description:  "تمارين متنوعة لتحسين التحكم والتوازن والمرونة",
						ImageURL:     "https://i.imgur.com/YA0lyvE.png",
						Features:     []string{"توازن", "مرونة", "تحكم"},
						Color:        "bg-[#BD93F9]/10",
						ButtonColor:  "bg-[#BD93F9]",
						ContentTypes: standardContentTypes(),
					},
					{
						ID:           "expressive-movement",
						Title:        "الحركة التعبيرية",
						Description:  "أنشطة إبداعية لتطوير المهارات الحركية التعبيرية",
						ImageURL:     "https://i.imgur.com/0576Wqf.png",
						Features:     []string{"تعبير حركي", "إبداع", "تناسق"},
						Color:        "bg-[#7403ee]/10",
						ButtonColor:  "bg-[#7403ee]",
						ContentTypes: standardContentTypes(),
					},
				},
			},
			{
				ID:          "upper-grades",
				Title:       "مرحلة الصفوف العليا",
				Description: "محتوى تعليمي مخصص للصفوف العليا من الرابع إلى السادس",
				ImageURL:    "https://i.imgur.com/yv5Ny0t.png",
				Features: []string{
					"تطوير المهارات الرياضية المتقدمة",
					"المشاركة في المنافسات",
					"تعزيز روح الفريق",
				},
				Color:       "bg-[#FF79C6]/10",
				ButtonColor: "bg-[#FFD000]",
				Subcategories: []Subcategory{
					{
						ID:           "team-sports",
						Title:        "الألعاب الجماعية",
						Description:  "تطوير مهارات العمل الجماعي والتنسيق",
						ImageURL:     "https://i.imgur.com/acwSG5W.png",
						Features:     []string{"كرة القدم", "كرة السلة", "الكرة الطائرة"},
						Color:        "bg-[#27AE60]/10",
						ButtonColor:  "bg-[#27AE60]",
						ContentTypes: standardContentTypes(),
					},
					{
						ID:           "individual-sports",
						Title:        "الألعاب الفردية",
						Description:  "تنمية المهارات الشخصية والثقة بالنفس",
						ImageURL:     "https://i.imgur.com/acwSG5W.png",
						Features:     []string{"الجمباز", "ألعاب القوى", "السباحة"},
						Color:        "bg-[#BD93F9]/10",
						ButtonColor:  "bg-[#BD93F9]",
						ContentTypes: standardContentTypes(),
					},
				},
			},
		},
	},
}
